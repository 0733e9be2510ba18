package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tumbi/internal/client/api"
)

type fakeSource struct {
	mu       sync.Mutex
	msgs     []api.Message
	calls    atomic.Int32
	sendErr  error
	fetchErr error
	now      time.Time
}

func (f *fakeSource) Messages(ctx context.Context, id string) ([]api.Message, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]api.Message(nil), f.msgs...), nil
}

func (f *fakeSource) setFetchErr(err error) {
	f.mu.Lock()
	f.fetchErr = err
	f.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (f *fakeSource) SendMessage(ctx context.Context, id, content string) (api.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return api.Message{}, f.sendErr
	}
	f.now = f.now.Add(time.Second)
	msg := api.Message{ID: fmt.Sprintf("m%d", len(f.msgs)+1), ConversationID: id, Content: content, CreatedAt: f.now}
	f.msgs = append(f.msgs, msg)
	return msg, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshSortsAndDedupes(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{msgs: []api.Message{
		{ID: "b", CreatedAt: base.Add(time.Minute)},
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base.Add(time.Minute)},
		{ID: "a", CreatedAt: base},
	}}
	p := NewPoller(src, "c1", quietLogger())
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := p.Transcript()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestSendShowsMessageOnlyAfterEcho(t *testing.T) {
	src := &fakeSource{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := NewPoller(src, "c1", quietLogger())
	var updates atomic.Int32
	p.OnUpdate = func([]api.Message) { updates.Add(1) }

	if err := p.Send(context.Background(), "  hello  "); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := p.Transcript()
	if len(got) != 1 || got[0].Content != "hello" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if updates.Load() != 1 {
		t.Fatalf("expected one update, got %d", updates.Load())
	}

	src.sendErr = errors.New("offline")
	if err := p.Send(context.Background(), "lost"); err == nil {
		t.Fatalf("expected send error")
	}
	if len(p.Transcript()) != 1 {
		t.Fatalf("failed send must not append locally")
	}
	if err := p.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendSucceedsWhenOnlyTheRefetchFails(t *testing.T) {
	src := &fakeSource{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), fetchErr: errors.New("timeout")}
	p := NewPoller(src, "c1", quietLogger())
	if err := p.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("accepted message reported as failed: %v", err)
	}
	if len(p.Transcript()) != 0 {
		t.Fatalf("message must not appear before the server echoes it")
	}
	src.setFetchErr(nil)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := p.Transcript(); len(got) != 1 || got[0].Content != "hello" {
		t.Fatalf("unexpected transcript %+v", got)
	}
}

func TestMountPollsUntilUnmount(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, "c1", quietLogger())
	p.Interval = 5 * time.Millisecond
	p.Mount(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not tick, calls=%d", src.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	p.Unmount()
	after := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if src.calls.Load() != after {
		t.Fatalf("request fired after unmount: %d -> %d", after, src.calls.Load())
	}
	p.Unmount()
}

func TestMountFetchesImmediately(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, "c1", quietLogger())
	p.Interval = time.Hour
	fetched := make(chan struct{}, 1)
	p.OnUpdate = func([]api.Message) {
		select {
		case fetched <- struct{}{}:
		default:
		}
	}
	p.Mount(context.Background())
	defer p.Unmount()
	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatalf("mount did not fetch immediately")
	}
}

func TestFailedPollKeepsTranscriptAndRecovers(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{msgs: []api.Message{{ID: "m1", Content: "is it available?", CreatedAt: base}}}
	p := NewPoller(src, "c1", quietLogger())
	p.Interval = 2 * time.Millisecond
	var updates atomic.Int32
	p.OnUpdate = func([]api.Message) { updates.Add(1) }
	p.Mount(context.Background())
	defer p.Unmount()

	waitFor(t, "first transcript", func() bool { return len(p.Transcript()) == 1 })

	src.setFetchErr(errors.New("offline"))
	// let the in-flight poll land before counting
	time.Sleep(5 * time.Millisecond)
	updatesBefore := updates.Load()
	callsBefore := src.calls.Load()
	waitFor(t, "failing polls", func() bool { return src.calls.Load() >= callsBefore+3 })
	if got := p.Transcript(); len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("failed poll changed the transcript: %+v", got)
	}
	if updates.Load() != updatesBefore {
		t.Fatalf("failed poll delivered an update")
	}

	src.mu.Lock()
	src.msgs = append(src.msgs, api.Message{ID: "m2", Content: "yes", CreatedAt: base.Add(time.Minute)})
	src.mu.Unlock()
	src.setFetchErr(nil)
	waitFor(t, "recovery on a later tick", func() bool { return len(p.Transcript()) == 2 })
}

func TestSendWhilePollingDeliversUpdatesInOrder(t *testing.T) {
	src := &fakeSource{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := NewPoller(src, "c1", quietLogger())
	p.Interval = time.Millisecond

	// plain ints: OnUpdate calls must be serialized for this to be race free
	var lastLen, shrinks int
	p.OnUpdate = func(msgs []api.Message) {
		if len(msgs) < lastLen {
			shrinks++
		}
		lastLen = len(msgs)
	}
	p.Mount(context.Background())

	const sends = 200
	for i := 0; i < sends; i++ {
		if err := p.Send(context.Background(), fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		if i%20 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	p.Unmount()

	if shrinks != 0 {
		t.Fatalf("an older transcript replaced a newer one %d times", shrinks)
	}
	if lastLen != sends {
		t.Fatalf("expected last update with %d messages, got %d", sends, lastLen)
	}
	if got := len(p.Transcript()); got != sends {
		t.Fatalf("expected %d messages, got %d", sends, got)
	}
}
