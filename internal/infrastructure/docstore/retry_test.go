package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fastygo/taskledger/domain"
)

type flakyBackend struct {
	failures int
	err      error
	saves    int
}

func (f *flakyBackend) Load(ctx context.Context) (*Document, error) { return NewDocument(), nil }

func (f *flakyBackend) Save(ctx context.Context, doc *Document) error {
	f.saves++
	if f.saves <= f.failures {
		return f.err
	}
	doc.Version++
	return nil
}

func (f *flakyBackend) Ping(ctx context.Context) error { return nil }
func (f *flakyBackend) Close() error                   { return nil }

func newTestRetrying(backend Backend, attempts int) (*Retrying, *[]time.Duration) {
	r := WithRetry(backend, RetryConfig{Attempts: attempts, BaseDelay: 10 * time.Millisecond}, nil)
	var delays []time.Duration
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	backend := &flakyBackend{failures: 2, err: errors.New("file locked")}
	r, delays := newTestRetrying(backend, 4)

	if err := r.Save(context.Background(), NewDocument()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if backend.saves != 3 {
		t.Fatalf("expected 3 attempts, got %d", backend.saves)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, *delays)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, *delays)
		}
	}
}

func TestRetryGivesUpWithPersistenceError(t *testing.T) {
	backend := &flakyBackend{failures: 10, err: errors.New("disk full")}
	r, _ := newTestRetrying(backend, 3)

	err := r.Save(context.Background(), NewDocument())
	if !domain.IsDomainError(err, domain.ErrCodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if backend.saves != 3 {
		t.Fatalf("expected 3 attempts, got %d", backend.saves)
	}
}

func TestRetryDoesNotRetryConflicts(t *testing.T) {
	backend := &flakyBackend{failures: 10, err: domain.ErrVersionConflict}
	r, _ := newTestRetrying(backend, 4)

	err := r.Save(context.Background(), NewDocument())
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if backend.saves != 1 {
		t.Fatalf("expected a single attempt, got %d", backend.saves)
	}
}
