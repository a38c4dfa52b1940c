package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	ledger       Pinger
	ledgerDriver string
	redis        redislib.UniversalClient

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New watches the ledger backend and, when redis is non-nil, the redis client.
func New(ledger Pinger, ledgerDriver string, redis redislib.UniversalClient, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		ledger:       ledger,
		ledgerDriver: ledgerDriver,
		redis:        redis,
		interval:     interval,
		stopCh:       make(chan struct{}),
		logger:       logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	return m.GetStatus().Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and stores the result.
func (m *Monitor) Refresh() Status {
	status := Status{
		Ledger:       m.checkLedger(),
		LedgerDriver: m.ledgerDriver,
		RedisEnabled: m.redis != nil,
		Redis:        m.checkRedis(),
		LastCheck:    time.Now(),
	}

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Warn("dependency health changed",
			zap.Bool("healthy", status.Healthy()),
			zap.Bool("ledger", status.Ledger),
			zap.Bool("redis", status.Redis))
	}
	return status
}

func (m *Monitor) checkLedger() bool {
	if m.ledger == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.ledger.Ping(ctx); err != nil {
		m.logger.Debug("ledger ping failed", zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}
