package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhouzirui/cubechat/internal/channel"
	"github.com/zhouzirui/cubechat/internal/model/chat"
	chatservice "github.com/zhouzirui/cubechat/internal/service/chat"
	"github.com/zhouzirui/cubechat/internal/upload"
)

type fakeSession struct {
	timeline  *chat.Timeline
	submitted []string
	uploads   []string
	submitErr error
}

func newFakeSession() *fakeSession {
	tl := chat.NewTimeline()
	tl.Append(chat.Remote, "welcome", "10:00")
	return &fakeSession{timeline: tl}
}

func (f *fakeSession) Submit(_ context.Context, text string) (chat.Entry, error) {
	if text == "" || text == "   " {
		return chat.Entry{}, chatservice.ErrEmptySubmission
	}
	f.submitted = append(f.submitted, text)
	snap := f.timeline.Append(chat.Local, text, "10:01")
	entry, _ := snap.Last()
	return entry, f.submitErr
}

func (f *fakeSession) Upload(_ context.Context, name string, _ []byte) upload.Result {
	f.uploads = append(f.uploads, name)
	return upload.Result{OK: "stored"}
}

func (f *fakeSession) Snapshot() chat.Snapshot {
	return f.timeline.Snapshot()
}

func typeAndEnter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestEnterSubmitsAndClearsInput(t *testing.T) {
	session := newFakeSession()
	m := New(session, NewFeed(nil))

	m, cmd := typeAndEnter(t, m, "What is X?")

	assert.Nil(t, cmd)
	assert.Equal(t, []string{"What is X?"}, session.submitted)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, 2, m.snap.Len())
	assert.Contains(t, m.renderTimeline(), "What is X?")
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	session := newFakeSession()
	m := New(session, NewFeed(nil))

	m, _ = typeAndEnter(t, m, "   ")

	assert.Empty(t, session.submitted)
	assert.Equal(t, "   ", m.input.Value())
	assert.Empty(t, m.status)
}

func TestSubmitFailureShowsStatus(t *testing.T) {
	session := newFakeSession()
	session.submitErr = channel.ErrDisconnected
	m := New(session, NewFeed(nil))

	m, _ = typeAndEnter(t, m, "hello")

	assert.True(t, m.statusFailed)
	assert.Contains(t, m.status, "channel disconnected")
	assert.Empty(t, m.input.Value())
}

func TestUploadCommandReadsFile(t *testing.T) {
	session := newFakeSession()
	m := New(session, NewFeed(nil))
	m.readFile = func(path string) ([]byte, error) {
		assert.Equal(t, "/tmp/docs/guide.pdf", path)
		return []byte("%PDF"), nil
	}

	m, cmd := typeAndEnter(t, m, "/upload /tmp/docs/guide.pdf")
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.status, "Uploading guide.pdf")

	assert.Nil(t, cmd())
	assert.Equal(t, []string{"guide.pdf"}, session.uploads)
}

func TestUploadCommandReadFailure(t *testing.T) {
	session := newFakeSession()
	m := New(session, NewFeed(nil))
	m.readFile = func(string) ([]byte, error) { return nil, errors.New("no such file") }

	m, cmd := typeAndEnter(t, m, "/upload missing.pdf")
	require.NotNil(t, cmd)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.True(t, m.statusFailed)
	assert.Equal(t, "Upload error: no such file", m.status)
	assert.Empty(t, session.uploads)
}

func TestUploadCommandWithoutPath(t *testing.T) {
	m := New(newFakeSession(), NewFeed(nil))

	m, cmd := typeAndEnter(t, m, "/upload")

	assert.Nil(t, cmd)
	assert.True(t, m.statusFailed)
}

func TestNotificationUpdatesStatus(t *testing.T) {
	m := New(newFakeSession(), NewFeed(nil))

	next, cmd := m.Update(notificationMsg{note: chatservice.Notification{Title: "Upload successful", Description: "stored"}})
	m = next.(Model)

	assert.NotNil(t, cmd)
	assert.Equal(t, "Upload successful: stored", m.status)
	assert.False(t, m.statusFailed)
}

func TestSnapshotMessageIgnoresStaleVersions(t *testing.T) {
	session := newFakeSession()
	m := New(session, NewFeed(nil))
	stale := session.Snapshot()
	fresh := session.timeline.Append(chat.Remote, "X is Y\n", "10:02")

	next, _ := m.Update(snapshotMsg{snap: fresh})
	m = next.(Model)
	next, _ = m.Update(snapshotMsg{snap: stale})
	m = next.(Model)

	assert.Equal(t, fresh.Version(), m.snap.Version())
	assert.Contains(t, m.renderTimeline(), "X is Y")
}

func TestQuitKeys(t *testing.T) {
	m := New(newFakeSession(), NewFeed(nil))

	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestCubeAdvances(t *testing.T) {
	m := New(newFakeSession(), NewFeed(nil))

	next, cmd := m.Update(cubeTickMsg{})

	assert.NotNil(t, cmd)
	assert.Equal(t, 1, next.(Model).cube.frame)
	assert.NotEmpty(t, next.(Model).View())
}

func TestFeedKeepsNewestSnapshot(t *testing.T) {
	feed := NewFeed(nil)
	tl := chat.NewTimeline()

	feed.Observe(tl.Append(chat.Remote, "a", "10:00"))
	feed.Observe(tl.Append(chat.Remote, "b", "10:00"))

	msg := feed.waitSnapshot()().(snapshotMsg)
	assert.Equal(t, uint64(2), msg.snap.Version())
}

func TestFeedKeepsNewestNotification(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	feed := NewFeed(zap.New(core))

	for i := 0; i < notificationBuffer; i++ {
		feed.Notify(chatservice.Notification{Title: "Upload successful"})
	}
	feed.Notify(chatservice.Notification{Title: "Upload error", Description: "bad file", Failed: true})

	require.Equal(t, 1, logs.FilterMessage("dropping notification").Len())

	var last chatservice.Notification
	for i := 0; i < notificationBuffer; i++ {
		last = feed.waitNotification()().(notificationMsg).note
	}
	assert.True(t, last.Failed)
	assert.Equal(t, "bad file", last.Description)
}

func TestParseUpload(t *testing.T) {
	path, ok := parseUpload("  /upload  a b.pdf ")
	assert.True(t, ok)
	assert.Equal(t, "a b.pdf", path)

	_, ok = parseUpload("/uploader x")
	assert.False(t, ok)
}
