package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type closer struct {
	closed *[]string
	name   string
}

func (c closer) Close() error {
	*c.closed = append(*c.closed, c.name)
	return nil
}

func TestShutdownRunsHooksInReverse(t *testing.T) {
	m := New(time.Second, nil)
	var order []string

	m.RegisterCloser("ledger", closer{closed: &order, name: "ledger"})
	m.Register("scheduler", func(context.Context) error {
		order = append(order, "scheduler")
		return nil
	})
	m.Register("broken", func(context.Context) error {
		order = append(order, "broken")
		return errors.New("boom")
	})
	m.Register("nil", nil)
	m.RegisterCloser("nil closer", nil)

	if m.Len() != 3 {
		t.Fatalf("expected 3 hooks, got %d", m.Len())
	}

	err := m.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected joined hook error")
	}
	if want := []string{"broken", "scheduler", "ledger"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestShutdownStopsAtDeadline(t *testing.T) {
	m := New(time.Second, nil)
	ran := false
	m.Register("late", func(context.Context) error {
		ran = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Shutdown(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran {
		t.Fatal("hook must not run after the deadline")
	}
}
