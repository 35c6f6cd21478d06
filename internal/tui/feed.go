package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/model/chat"
	chatservice "github.com/zhouzirui/cubechat/internal/service/chat"
)

// Feed carries session callbacks into the bubbletea loop. Only the newest
// snapshot matters, so a pending one is replaced rather than queued.
type Feed struct {
	snapshots     chan chat.Snapshot
	notifications chan chatservice.Notification
	logger        *zap.Logger
}

const notificationBuffer = 8

// NewFeed creates an empty feed.
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		snapshots:     make(chan chat.Snapshot, 1),
		notifications: make(chan chatservice.Notification, notificationBuffer),
		logger:        logger.Named("feed"),
	}
}

// Observe is meant for chatservice.WithObserver.
func (f *Feed) Observe(snap chat.Snapshot) {
	for {
		select {
		case f.snapshots <- snap:
			return
		default:
		}
		select {
		case <-f.snapshots:
		default:
		}
	}
}

// Notify is meant for chatservice.WithNotifier. When the buffer is full the
// oldest pending notification is dropped so the newest one is shown.
func (f *Feed) Notify(n chatservice.Notification) {
	for {
		select {
		case f.notifications <- n:
			return
		default:
		}
		select {
		case old := <-f.notifications:
			f.logger.Warn("dropping notification",
				zap.String("title", old.Title),
				zap.String("description", old.Description),
				zap.Bool("failed", old.Failed))
		default:
		}
	}
}

type snapshotMsg struct{ snap chat.Snapshot }

type notificationMsg struct{ note chatservice.Notification }

func (f *Feed) waitSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: <-f.snapshots}
	}
}

func (f *Feed) waitNotification() tea.Cmd {
	return func() tea.Msg {
		return notificationMsg{note: <-f.notifications}
	}
}
