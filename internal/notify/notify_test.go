package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingNotifier struct {
	sent []Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

type brokenSuppressor struct{}

func (brokenSuppressor) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestMemorySuppressorWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemorySuppressor()
	s.Now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := s.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("first acquire must pass")
	}
	now = now.Add(30 * time.Second)
	if ok, _ := s.Acquire(ctx, "k", time.Minute); ok {
		t.Fatal("repeat within window must be suppressed")
	}
	if ok, _ := s.Acquire(ctx, "other", time.Minute); !ok {
		t.Fatal("different key must pass")
	}
	now = now.Add(31 * time.Second)
	if ok, _ := s.Acquire(ctx, "k", time.Minute); !ok {
		t.Fatal("acquire after window must pass")
	}
}

func TestGateSuppressesPerTriggerAndChat(t *testing.T) {
	rec := &recordingNotifier{}
	gate := NewGate(rec, NewMemorySuppressor(), time.Minute, nil)
	ctx := context.Background()

	if !gate.Send(ctx, Message{Trigger: TriggerMorning, ChatID: "u1", Text: "hi"}) {
		t.Fatal("first send must go out")
	}
	if gate.Send(ctx, Message{Trigger: TriggerMorning, ChatID: "u1", Text: "hi again"}) {
		t.Fatal("second morning send to u1 must be suppressed")
	}
	if !gate.Send(ctx, Message{Trigger: TriggerEvening, ChatID: "u1", Text: "bye"}) {
		t.Fatal("evening trigger has its own key")
	}
	if !gate.Send(ctx, Message{Trigger: TriggerMorning, ChatID: "u2", Text: "hi"}) {
		t.Fatal("other chats are independent")
	}
	if len(rec.sent) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(rec.sent))
	}
}

func TestGateSwallowsFailures(t *testing.T) {
	gate := NewGate(&recordingNotifier{err: errors.New("gateway down")}, nil, time.Minute, nil)
	if gate.Send(context.Background(), Message{Trigger: TriggerMorning, ChatID: "u1"}) {
		t.Fatal("failed delivery must report false")
	}

	rec := &recordingNotifier{}
	gate = NewGate(rec, brokenSuppressor{}, time.Minute, nil)
	if !gate.Send(context.Background(), Message{Trigger: TriggerMorning, ChatID: "u1"}) {
		t.Fatal("suppressor failure must not block delivery")
	}
}

func TestKey(t *testing.T) {
	if got := Key(TriggerEvening, "42"); got != "notify:evening:42" {
		t.Fatalf("unexpected key %q", got)
	}
}
