package ledger

import (
	"context"
	"encoding/json"

	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
)

func (r *Repository) GetSetting(ctx context.Context, key string, dst interface{}) (bool, error) {
	var raw json.RawMessage
	err := r.view(ctx, func(doc *docstore.Document) error {
		raw = doc.Config[key]
		return nil
	})
	if err != nil || len(raw) == 0 {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) PutSetting(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.update(ctx, func(doc *docstore.Document) (bool, error) {
		doc.Config[key] = payload
		return true, nil
	})
}
