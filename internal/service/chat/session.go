package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/channel"
	"github.com/zhouzirui/cubechat/internal/model/chat"
	"github.com/zhouzirui/cubechat/internal/model/event"
	"github.com/zhouzirui/cubechat/internal/upload"
)

// ErrEmptySubmission is returned by Submit for blank input. Nothing is
// appended or sent in that case; callers are expected to ignore it.
var ErrEmptySubmission = errors.New("submission is empty")

// DefaultWelcome seeds every new session.
const DefaultWelcome = "Type /upload <path> to add PDFs to the library."

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Uploader performs one document upload.
type Uploader interface {
	Upload(ctx context.Context, fileName string, data []byte) upload.Result
}

// Notification is a transient, user-visible message about an upload.
type Notification struct {
	Title       string
	Description string
	Failed      bool
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithObserver registers fn to receive every new snapshot, in append order.
// fn runs while the session is locked and must not call back into it.
func WithObserver(fn func(chat.Snapshot)) Option {
	return func(s *Session) { s.observers = append(s.observers, fn) }
}

// WithUploader enables Upload.
func WithUploader(u Uploader) Option {
	return func(s *Session) { s.uploader = u }
}

// WithNotifier receives upload notifications.
func WithNotifier(fn func(Notification)) Option {
	return func(s *Session) { s.notify = fn }
}

// WithUploadAnnouncements also records upload outcomes as remote entries.
func WithUploadAnnouncements() Option {
	return func(s *Session) { s.announceUploads = true }
}

// WithWelcome overrides the seeded welcome text.
func WithWelcome(text string) Option {
	return func(s *Session) { s.welcome = text }
}

// Session owns one chat timeline and its subscription to the channel.
// Every timeline mutation goes through the session lock, so appends never
// interleave regardless of which goroutine delivers them.
type Session struct {
	id       string
	channel  channel.Channel
	uploader Uploader
	logger   *zap.Logger
	clock    func() time.Time

	welcome         string
	announceUploads bool
	observers       []func(chat.Snapshot)
	notify          func(Notification)

	// submitMu keeps emission order equal to local append order.
	submitMu sync.Mutex

	mu         sync.Mutex
	timeline   *chat.Timeline
	sub        *channel.Subscription
	generation uint64
}

// NewSession creates a detached session on ch, seeded with a welcome entry.
func NewSession(ch channel.Channel, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		channel:  ch,
		logger:   zap.NewNop(),
		clock:    time.Now,
		welcome:  DefaultWelcome,
		notify:   func(Notification) {},
		timeline: chat.NewTimeline(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("session").With(zap.String("session", s.id))

	s.mu.Lock()
	s.appendLocked(chat.Remote, s.welcome)
	s.mu.Unlock()
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current timeline view.
func (s *Session) Snapshot() chat.Snapshot {
	return s.timeline.Snapshot()
}

// Attached reports whether the session currently listens on the channel.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}

// Attach starts listening for answers. Calling it again while attached has
// no effect, so one inbound event never produces two entries.
func (s *Session) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.logger.Debug("attach ignored, already attached")
		return
	}

	s.generation++
	gen := s.generation
	s.sub = s.channel.On(event.BotResponse, func(data []byte) {
		s.receive(gen, data)
	})
	s.logger.Info("attached")
}

// Detach stops listening. It is safe to call on every exit path, including
// when the session was never attached. Requests already sent stay in flight.
func (s *Session) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return
	}
	s.sub.Unsubscribe()
	s.sub = nil
	s.logger.Info("detached")
}

// Submit appends text as a local entry and sends it as a question.
// Blank input yields ErrEmptySubmission. When the send fails the entry is
// kept and the error is returned; the question is not retried.
func (s *Session) Submit(ctx context.Context, text string) (chat.Entry, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Entry{}, ErrEmptySubmission
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	s.mu.Lock()
	snap := s.appendLocked(chat.Local, text)
	s.mu.Unlock()
	entry, _ := snap.Last()

	if err := s.channel.Emit(ctx, event.AskQuestion, event.Question{Question: text}); err != nil {
		s.logger.Warn("question not delivered", zap.Uint64("entry", entry.ID), zap.Error(err))
		return entry, fmt.Errorf("send question: %w", err)
	}
	s.logger.Debug("question sent", zap.Uint64("entry", entry.ID))
	return entry, nil
}

// HandleAnswer applies one bot_response payload for the current attachment
// and reports whether an entry was appended. Payloads without an answer
// field, and payloads arriving while detached, are dropped.
func (s *Session) HandleAnswer(data []byte) bool {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	return s.receive(gen, data)
}

// receive is the channel listener. Deliveries that race with Detach, or
// that belong to an earlier attachment, are discarded.
func (s *Session) receive(gen uint64, data []byte) bool {
	answer, ok := s.decodeAnswer(data)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil || s.generation != gen {
		s.logger.Debug("dropping answer delivered after detach")
		return false
	}
	s.appendLocked(chat.Remote, answer+"\n")
	return true
}

func (s *Session) decodeAnswer(data []byte) (string, bool) {
	var payload event.Answer
	if err := json.Unmarshal(data, &payload); err != nil {
		s.logger.Warn("dropping malformed answer", zap.Error(err))
		return "", false
	}
	if payload.Answer == nil {
		s.logger.Warn("dropping answer without answer field", zap.ByteString("payload", data))
		return "", false
	}
	return *payload.Answer, true
}

// Upload sends a document through the configured uploader and reports the
// outcome once through the notifier.
func (s *Session) Upload(ctx context.Context, fileName string, data []byte) upload.Result {
	var res upload.Result
	if s.uploader == nil {
		res = upload.Result{Err: "uploads are not configured"}
	} else {
		res = s.uploader.Upload(ctx, fileName, data)
	}

	note := Notification{Title: "Upload successful", Description: res.OK}
	if res.Failed() {
		note = Notification{Title: "Upload error", Description: res.Err, Failed: true}
		s.logger.Warn("upload failed", zap.String("file", fileName), zap.String("reason", res.Err))
	} else {
		s.logger.Info("upload finished", zap.String("file", fileName))
	}

	if s.announceUploads {
		body := note.Title
		if note.Description != "" {
			body += ": " + note.Description
		}
		s.mu.Lock()
		s.appendLocked(chat.Remote, body)
		s.mu.Unlock()
	}

	s.notify(note)
	return res
}

func (s *Session) appendLocked(origin chat.Origin, body string) chat.Snapshot {
	snap := s.timeline.Append(origin, body, s.clock().Format(chat.TimeLayout))
	for _, fn := range s.observers {
		fn(snap)
	}
	return snap
}
