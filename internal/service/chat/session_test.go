package chat_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/cubechat/internal/channel"
	model "github.com/zhouzirui/cubechat/internal/model/chat"
	"github.com/zhouzirui/cubechat/internal/model/event"
	chat "github.com/zhouzirui/cubechat/internal/service/chat"
	"github.com/zhouzirui/cubechat/internal/upload"
)

type emitted struct {
	event   string
	payload any
}

// fakeChannel records emissions and lets tests deliver inbound events.
type fakeChannel struct {
	channel.Registry

	mu      sync.Mutex
	emits   []emitted
	emitErr error
}

func (f *fakeChannel) Emit(_ context.Context, name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emits = append(f.emits, emitted{event: name, payload: payload})
	return nil
}

func (f *fakeChannel) sent() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emits...)
}

func (f *fakeChannel) answer(text string) {
	f.Dispatch(event.BotResponse, []byte(`{"answer":`+strconv.Quote(text)+`}`))
}

type stubUploader struct {
	result upload.Result
	calls  int
}

func (u *stubUploader) Upload(context.Context, string, []byte) upload.Result {
	u.calls++
	return u.result
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 14, 7, 0, 0, time.UTC)
}

func newSession(ch channel.Channel, opts ...chat.Option) *chat.Session {
	return chat.NewSession(ch, append([]chat.Option{chat.WithClock(fixedClock)}, opts...)...)
}

func TestNewSessionSeedsWelcome(t *testing.T) {
	s := newSession(&fakeChannel{})

	snap := s.Snapshot()
	require.Equal(t, 1, snap.Len())
	welcome := snap.At(0)
	assert.Equal(t, uint64(1), welcome.ID)
	assert.Equal(t, model.Remote, welcome.Origin)
	assert.Equal(t, chat.DefaultWelcome, welcome.Body)
	assert.Equal(t, "14:07", welcome.CreatedAt)
	assert.False(t, s.Attached())
	assert.NotEmpty(t, s.ID())
}

func TestSubmitAppendsLocalEntriesWithoutGaps(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	ctx := context.Background()

	for i, text := range []string{"one", "  two  ", "three"} {
		entry, err := s.Submit(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, model.Local, entry.Origin)
		assert.Equal(t, text, entry.Body)
		assert.Equal(t, uint64(i+2), entry.ID)
	}

	entries := s.Snapshot().Entries()
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].ID+1, entries[i].ID)
	}

	emits := ch.sent()
	require.Len(t, emits, 3)
	assert.Equal(t, event.AskQuestion, emits[1].event)
	assert.Equal(t, event.Question{Question: "  two  "}, emits[1].payload)
}

func TestSubmitBlankIsNoop(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := s.Submit(context.Background(), text)
		assert.ErrorIs(t, err, chat.ErrEmptySubmission)
	}

	assert.Equal(t, 1, s.Snapshot().Len())
	assert.Empty(t, ch.sent())
}

func TestQuestionThenAnswer(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	s.Attach()
	defer s.Detach()

	_, err := s.Submit(context.Background(), "What is X?")
	require.NoError(t, err)
	ch.answer("X is Y")

	entries := s.Snapshot().Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, model.Entry{ID: 2, Origin: model.Local, Body: "What is X?", CreatedAt: "14:07"}, entries[1])
	assert.Equal(t, model.Entry{ID: 3, Origin: model.Remote, Body: "X is Y\n", CreatedAt: "14:07"}, entries[2])
}

func TestDetachStopsDelivery(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	s.Attach()
	ch.answer("first")
	s.Detach()
	ch.answer("second")

	assert.Equal(t, 2, s.Snapshot().Len())
	assert.Equal(t, 0, ch.Count(event.BotResponse))
	assert.False(t, s.Attached())
}

func TestHandleAnswerWhileDetached(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)

	assert.False(t, s.HandleAnswer([]byte(`{"answer":"before attach"}`)))

	s.Attach()
	assert.True(t, s.HandleAnswer([]byte(`{"answer":"attached"}`)))
	s.Detach()

	assert.False(t, s.HandleAnswer([]byte(`{"answer":"after detach"}`)))
	assert.Equal(t, 2, s.Snapshot().Len())
}

func TestDoubleAttachDeliversOnce(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	s.Attach()
	s.Attach()
	defer s.Detach()

	ch.answer("only once")

	assert.Equal(t, 1, ch.Count(event.BotResponse))
	assert.Equal(t, 2, s.Snapshot().Len())
}

func TestReattachAfterDetach(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)

	for i := 0; i < 3; i++ {
		s.Attach()
		s.Detach()
	}
	s.Detach()
	s.Attach()
	defer s.Detach()

	ch.answer("hello")

	assert.Equal(t, 1, ch.Count(event.BotResponse))
	assert.Equal(t, 2, s.Snapshot().Len())
}

func TestMalformedAnswerIsDropped(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	s.Attach()
	defer s.Detach()

	ch.Dispatch(event.BotResponse, []byte(`{"text":"no answer field"}`))
	ch.Dispatch(event.BotResponse, []byte(`garbage`))

	assert.Equal(t, 1, s.Snapshot().Len())
	assert.False(t, s.HandleAnswer([]byte(`{}`)))
	assert.True(t, s.HandleAnswer([]byte(`{"answer":""}`)))
	last, _ := s.Snapshot().Last()
	assert.Equal(t, "\n", last.Body)
}

func TestSubmitKeepsEntryWhenEmitFails(t *testing.T) {
	ch := &fakeChannel{emitErr: channel.ErrDisconnected}
	s := newSession(ch)

	entry, err := s.Submit(context.Background(), "offline question")

	require.Error(t, err)
	assert.True(t, errors.Is(err, channel.ErrDisconnected))
	assert.Equal(t, "offline question", entry.Body)
	assert.Equal(t, 2, s.Snapshot().Len())
}

func TestSnapshotsAreIndependent(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)

	before := s.Snapshot()
	_, err := s.Submit(context.Background(), "hi")
	require.NoError(t, err)
	after := s.Snapshot()

	assert.Equal(t, 1, before.Len())
	assert.Equal(t, 2, after.Len())
	assert.NotEqual(t, before.Version(), after.Version())
}

func TestObserverSeesEveryAppendInOrder(t *testing.T) {
	ch := &fakeChannel{}
	var versions []uint64
	s := newSession(ch, chat.WithObserver(func(snap model.Snapshot) {
		versions = append(versions, snap.Version())
	}))
	s.Attach()
	defer s.Detach()

	_, _ = s.Submit(context.Background(), "q")
	ch.answer("a")

	assert.Equal(t, []uint64{1, 2, 3}, versions)
}

func TestConcurrentSourcesKeepIDsUnique(t *testing.T) {
	ch := &fakeChannel{}
	s := newSession(ch)
	s.Attach()
	defer s.Detach()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Submit(context.Background(), "q")
		}()
		go func() {
			defer wg.Done()
			ch.answer("a")
		}()
	}
	wg.Wait()

	entries := s.Snapshot().Entries()
	require.Len(t, entries, 101)
	for i, entry := range entries {
		assert.Equal(t, uint64(i+1), entry.ID)
	}
}

func TestUploadNotifies(t *testing.T) {
	uploader := &stubUploader{result: upload.Result{OK: "doc.pdf uploaded and index updated."}}
	var notes []chat.Notification
	s := newSession(&fakeChannel{},
		chat.WithUploader(uploader),
		chat.WithNotifier(func(n chat.Notification) { notes = append(notes, n) }),
	)

	res := s.Upload(context.Background(), "doc.pdf", []byte("%PDF"))

	assert.False(t, res.Failed())
	assert.Equal(t, 1, uploader.calls)
	require.Len(t, notes, 1)
	assert.Equal(t, chat.Notification{Title: "Upload successful", Description: "doc.pdf uploaded and index updated."}, notes[0])
	assert.Equal(t, 1, s.Snapshot().Len())
}

func TestUploadFailureAnnounced(t *testing.T) {
	uploader := &stubUploader{result: upload.Result{Err: "bad file"}}
	var notes []chat.Notification
	s := newSession(&fakeChannel{},
		chat.WithUploader(uploader),
		chat.WithUploadAnnouncements(),
		chat.WithNotifier(func(n chat.Notification) { notes = append(notes, n) }),
	)

	res := s.Upload(context.Background(), "doc.txt", []byte("x"))

	assert.Equal(t, "bad file", res.Err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].Failed)
	last, _ := s.Snapshot().Last()
	assert.Equal(t, model.Remote, last.Origin)
	assert.Equal(t, "Upload error: bad file", last.Body)
}

func TestUploadWithoutUploader(t *testing.T) {
	s := newSession(&fakeChannel{}, chat.WithWelcome("hi"))

	res := s.Upload(context.Background(), "doc.pdf", nil)

	assert.True(t, res.Failed())
	assert.Equal(t, "hi", s.Snapshot().At(0).Body)
}
