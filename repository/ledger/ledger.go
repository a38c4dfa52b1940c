// Package ledger implements the task, user and settings repositories on top
// of a single persisted ledger document.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
	"github.com/fastygo/taskledger/repository"
)

// Repository serializes every read-modify-write cycle against the backend
// with one mutex per instance.
type Repository struct {
	backend docstore.Backend
	policy  domain.RolloverPolicy

	mu sync.Mutex

	Now   func() time.Time
	NewID func() string
}

// New returns a ledger repository. policy decides whether marking a task done
// prunes later copies of its series.
func New(backend docstore.Backend, policy domain.RolloverPolicy) *Repository {
	if policy == "" {
		policy = domain.PolicyCarry
	}
	return &Repository{
		backend: backend,
		policy:  policy,
		Now:     time.Now,
		NewID:   uuid.NewString,
	}
}

// Policy returns the rollover policy the repository was built with.
func (r *Repository) Policy() domain.RolloverPolicy {
	return r.policy
}

func (r *Repository) load(ctx context.Context) (*docstore.Document, error) {
	doc, err := r.backend.Load(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodePersistence, "ledger read failed", err)
	}
	return doc, nil
}

func (r *Repository) view(ctx context.Context, fn func(doc *docstore.Document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// update loads a fresh snapshot, applies fn and writes the document back when
// fn reports a change. A failed write leaves the stored document untouched.
func (r *Repository) update(ctx context.Context, fn func(doc *docstore.Document) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return r.backend.Save(ctx, doc)
}

var (
	_ repository.TaskRepository     = (*Repository)(nil)
	_ repository.UserRepository     = (*Users)(nil)
	_ repository.SettingsRepository = (*Repository)(nil)
)
