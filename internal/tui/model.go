// Package tui is the terminal presentation of a chat session: a timeline
// pane, a decorative cube, and an input line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/cubechat/internal/model/chat"
	chatservice "github.com/zhouzirui/cubechat/internal/service/chat"
	"github.com/zhouzirui/cubechat/internal/upload"
)

const (
	uploadCommand = "/upload"
	submitTimeout = 2 * time.Second
	uploadTimeout = 2 * time.Minute
	cubeWidth     = 20
)

// Session is the part of the chat session the shell drives.
type Session interface {
	Submit(ctx context.Context, text string) (chat.Entry, error)
	Upload(ctx context.Context, fileName string, data []byte) upload.Result
	Snapshot() chat.Snapshot
}

// Model renders snapshots and forwards user actions to the session.
type Model struct {
	session  Session
	feed     *Feed
	readFile func(string) ([]byte, error)
	styles   styles

	snap     chat.Snapshot
	input    textinput.Model
	viewport viewport.Model
	cube     cube

	status       string
	statusFailed bool
	width        int
	height       int
}

// New builds the shell for session. feed must be the one wired into the
// session's observer and notifier.
func New(session Session, feed *Feed) Model {
	input := textinput.New()
	input.Placeholder = "Type your message... (/upload <path> to add a PDF)"
	input.Prompt = "> "
	input.Focus()

	return Model{
		session:  session,
		feed:     feed,
		readFile: os.ReadFile,
		styles:   defaultStyles(),
		snap:     session.Snapshot(),
		input:    input,
		viewport: viewport.New(60, 20),
	}
}

// Init starts listening to the session and animating the cube.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.feed.waitSnapshot(),
		m.feed.waitNotification(),
		m.cube.tick(),
	)
}

// Update handles terminal and session events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.handleEnter()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case snapshotMsg:
		if msg.snap.Version() > m.snap.Version() {
			m.snap = msg.snap
			m.refresh()
		}
		return m, m.feed.waitSnapshot()

	case notificationMsg:
		m.setStatus(msg.note)
		return m, m.feed.waitNotification()

	case cubeTickMsg:
		m.cube = m.cube.next()
		return m, m.cube.tick()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEnter submits synchronously, keeping send order equal to typing
// order, and starts uploads in the background.
func (m *Model) handleEnter() tea.Cmd {
	text := m.input.Value()

	if path, ok := parseUpload(text); ok {
		m.input.Reset()
		if path == "" {
			m.setStatus(chatservice.Notification{Title: "Upload error", Description: "usage: /upload <path>", Failed: true})
			return nil
		}
		m.status, m.statusFailed = "Uploading "+filepath.Base(path)+"...", false
		return m.uploadCmd(path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	_, err := m.session.Submit(ctx, text)
	switch {
	case errors.Is(err, chatservice.ErrEmptySubmission):
		return nil
	case err != nil:
		m.input.Reset()
		m.status, m.statusFailed = fmt.Sprintf("Message not delivered: %v", err), true
	default:
		m.input.Reset()
	}
	m.snap = m.session.Snapshot()
	m.refresh()
	return nil
}

func (m Model) uploadCmd(path string) tea.Cmd {
	session, readFile := m.session, m.readFile
	return func() tea.Msg {
		data, err := readFile(path)
		if err != nil {
			return notificationMsg{note: chatservice.Notification{Title: "Upload error", Description: err.Error(), Failed: true}}
		}

		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		// The outcome arrives through the feed.
		session.Upload(ctx, filepath.Base(path), data)
		return nil
	}
}

func parseUpload(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed != uploadCommand && !strings.HasPrefix(trimmed, uploadCommand+" ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, uploadCommand)), true
}

func (m *Model) setStatus(n chatservice.Notification) {
	m.status = n.Title
	if n.Description != "" {
		m.status += ": " + n.Description
	}
	m.statusFailed = n.Failed
}

func (m *Model) resize() {
	chatWidth := m.width - cubeWidth - 4
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - 6
	if chatHeight < 5 {
		chatHeight = 5
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.Width = m.width - 4
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTimeline())
	m.viewport.GotoBottom()
}

func (m Model) renderTimeline() string {
	width := m.viewport.Width
	bubbleWidth := width * 3 / 4

	var b strings.Builder
	for i := 0; i < m.snap.Len(); i++ {
		entry := m.snap.At(i)
		body := strings.TrimRight(entry.Body, "\n")

		var block string
		if entry.IsLocal() {
			header := m.styles.Timestamp.Render(entry.CreatedAt) + " " + m.styles.Label.Render("You")
			bubble := fit(m.styles.LocalBody, body, bubbleWidth).Render(body)
			block = lipgloss.JoinVertical(lipgloss.Right, header, bubble)
			block = lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
		} else {
			header := m.styles.Label.Render("AI") + " " + m.styles.Timestamp.Render(entry.CreatedAt)
			bubble := fit(m.styles.RemoteBody, body, bubbleWidth).Render(body)
			block = lipgloss.JoinVertical(lipgloss.Left, header, bubble)
		}
		b.WriteString(block)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// fit wraps long bodies at limit and keeps short ones tight.
func fit(style lipgloss.Style, body string, limit int) lipgloss.Style {
	w := lipgloss.Width(body) + style.GetHorizontalFrameSize()
	if w > limit {
		w = limit
	}
	return style.Width(w)
}

// View renders the whole screen.
func (m Model) View() string {
	header := m.styles.Header.Render("CubeChat")
	chatPane := m.styles.Pane.Render(m.viewport.View())
	cubePane := m.styles.Pane.Width(cubeWidth).Render(m.cube.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, chatPane, cubePane)

	status := m.styles.Status.Render(m.status)
	if m.statusFailed {
		status = m.styles.Error.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.input.View(), status)
}
