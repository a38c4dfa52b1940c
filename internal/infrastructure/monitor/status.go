package monitor

import "time"

type Status struct {
	Ledger       bool      `json:"ledger"`
	LedgerDriver string    `json:"ledger_driver"`
	Redis        bool      `json:"redis"`
	RedisEnabled bool      `json:"redis_enabled"`
	LastCheck    time.Time `json:"last_check"`
}

// Healthy reports whether every configured dependency answered.
func (s Status) Healthy() bool {
	return s.Ledger && (!s.RedisEnabled || s.Redis)
}
