package docstore

import (
	"context"
	"encoding/json"

	"github.com/fastygo/taskledger/domain"
)

// Document is the whole persisted ledger state. Every operation loads it,
// mutates an in-memory copy and writes it back in one piece.
type Document struct {
	Version int                        `json:"version"`
	Users   []domain.User              `json:"users"`
	Tasks   []domain.Task              `json:"tasks"`
	Config  map[string]json.RawMessage `json:"config"`
}

// NewDocument returns an empty ledger document.
func NewDocument() *Document {
	doc := &Document{}
	doc.normalize()
	return doc
}

func (d *Document) normalize() {
	if d.Users == nil {
		d.Users = []domain.User{}
	}
	if d.Tasks == nil {
		d.Tasks = []domain.Task{}
	}
	if d.Config == nil {
		d.Config = map[string]json.RawMessage{}
	}
}

// Backend persists a single ledger document.
type Backend interface {
	// Load returns the stored document, or an empty one when nothing was written yet.
	Load(ctx context.Context) (*Document, error)
	// Save writes doc if its Version still matches the stored one and bumps Version.
	Save(ctx context.Context, doc *Document) error
	Ping(ctx context.Context) error
	Close() error
}

func decode(payload []byte) (*Document, error) {
	doc := &Document{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, doc); err != nil {
			return nil, err
		}
	}
	doc.normalize()
	return doc, nil
}
