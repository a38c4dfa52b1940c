package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Trigger names the scheduler event a notification belongs to.
type Trigger string

const (
	TriggerMorning Trigger = "morning"
	TriggerEvening Trigger = "evening"
	TriggerSummary Trigger = "summary"
)

// Message is an outbound chat message.
type Message struct {
	Trigger Trigger `json:"trigger"`
	ChatID  string  `json:"chat_id"`
	Text    string  `json:"text"`
}

// Notifier delivers messages to a chat. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Suppressor remembers recently sent keys.
type Suppressor interface {
	// Acquire reports whether key was not seen within window and records it.
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Key builds the suppression key for a trigger and recipient.
func Key(trigger Trigger, chatID string) string {
	return fmt.Sprintf("notify:%s:%s", trigger, chatID)
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		zap.String("trigger", string(msg.Trigger)),
		zap.String("chat_id", msg.ChatID),
		zap.String("text", msg.Text))
	return nil
}

// Gate sends through a Notifier at most once per (trigger, chat) within the
// window. Failures are logged and never returned.
type Gate struct {
	notifier   Notifier
	suppressor Suppressor
	window     time.Duration
	logger     *zap.Logger
}

func NewGate(notifier Notifier, suppressor Suppressor, window time.Duration, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if suppressor == nil {
		suppressor = NewMemorySuppressor()
	}
	return &Gate{
		notifier:   notifier,
		suppressor: suppressor,
		window:     window,
		logger:     logger,
	}
}

// Send reports whether the message was handed to the notifier successfully.
func (g *Gate) Send(ctx context.Context, msg Message) bool {
	if g.window > 0 {
		ok, err := g.suppressor.Acquire(ctx, Key(msg.Trigger, msg.ChatID), g.window)
		if err != nil {
			g.logger.Warn("notification suppressor unavailable, sending anyway",
				zap.String("chat_id", msg.ChatID), zap.Error(err))
		} else if !ok {
			g.logger.Debug("notification suppressed",
				zap.String("trigger", string(msg.Trigger)),
				zap.String("chat_id", msg.ChatID))
			return false
		}
	}

	if err := g.notifier.Send(ctx, msg); err != nil {
		g.logger.Warn("notification failed",
			zap.String("trigger", string(msg.Trigger)),
			zap.String("chat_id", msg.ChatID),
			zap.Error(err))
		return false
	}
	return true
}
