package repository

import "context"

// SettingsRepository exposes the caller-owned configuration bag stored next to the ledger.
type SettingsRepository interface {
	// GetSetting decodes key into dst and reports whether it was present.
	GetSetting(ctx context.Context, key string, dst interface{}) (bool, error)
	PutSetting(ctx context.Context, key string, value interface{}) error
}
