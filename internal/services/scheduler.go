package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/internal/notify"
	"github.com/fastygo/taskledger/usecase/materialize"
	"github.com/fastygo/taskledger/usecase/stats"
)

type Materializer interface {
	RunAll(ctx context.Context, date domain.Date) []materialize.Result
}

type Roller interface {
	RollOver(ctx context.Context, from, to domain.Date) ([]domain.Task, error)
}

type Reporter interface {
	Summary(ctx context.Context, date domain.Date) ([]stats.SummaryLine, error)
}

// Sender delivers a notification and reports whether it went out.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) bool
}

// SchedulerConfig controls when the daily triggers fire.
type SchedulerConfig struct {
	Location *time.Location
	// Morning and Evening are wall-clock times in HH:MM.
	Morning     string
	Evening     string
	CatchUp     bool
	GroupChatID string
	RunTimeout  time.Duration
}

// MorningReport summarizes one morning run.
type MorningReport struct {
	Date      domain.Date
	Created   int
	Notified  int
	Failed    int
	Assignees int
}

// EveningReport summarizes one evening run.
type EveningReport struct {
	From     domain.Date
	To       domain.Date
	Carried  int
	Reminded int
	Summary  bool
}

// Scheduler fires the morning materialization and the evening rollover.
type Scheduler struct {
	materializer Materializer
	roller       Roller
	reporter     Reporter
	sender       Sender
	logger       *zap.Logger
	cfg          SchedulerConfig
	cron         *cron.Cron

	morningHour, morningMinute int

	Now func() time.Time
}

func NewScheduler(
	materializer Materializer,
	roller Roller,
	reporter Reporter,
	sender Sender,
	logger *zap.Logger,
	cfg SchedulerConfig,
) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mh, mm, err := parseClock(cfg.Morning)
	if err != nil {
		return nil, fmt.Errorf("morning time: %w", err)
	}
	eh, em, err := parseClock(cfg.Evening)
	if err != nil {
		return nil, fmt.Errorf("evening time: %w", err)
	}

	s := &Scheduler{
		materializer:  materializer,
		roller:        roller,
		reporter:      reporter,
		sender:        sender,
		logger:        logger,
		cfg:           cfg,
		cron:          cron.New(cron.WithLocation(cfg.Location)),
		morningHour:   mh,
		morningMinute: mm,
		Now:           time.Now,
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", mm, mh), s.job("morning", func(ctx context.Context) {
		s.RunMorning(ctx)
	})); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", em, eh), s.job("evening", func(ctx context.Context) {
		if _, err := s.RunEvening(ctx); err != nil {
			s.logger.Error("evening run failed", zap.Error(err))
		}
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) job(name string, run func(ctx context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
		defer cancel()
		s.logger.Info("scheduled run", zap.String("trigger", name))
		run(ctx)
	}
}

// Start runs the catch-up morning pass when the process starts after the
// morning time, then launches the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	if s.cfg.CatchUp && s.pastMorning() {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		report := s.RunMorning(runCtx)
		cancel()
		s.logger.Info("catch-up morning run finished",
			zap.String("date", report.Date.String()),
			zap.Int("created", report.Created))
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", s.cfg.Location.String()),
		zap.String("morning", s.cfg.Morning),
		zap.String("evening", s.cfg.Evening))
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// Today is the current calendar day in the scheduler's timezone.
func (s *Scheduler) Today() domain.Date {
	return domain.Today(s.Now(), s.cfg.Location)
}

func (s *Scheduler) pastMorning() bool {
	now := s.Now().In(s.cfg.Location)
	morning := time.Date(now.Year(), now.Month(), now.Day(), s.morningHour, s.morningMinute, 0, 0, s.cfg.Location)
	return !now.Before(morning)
}

// RunMorning materializes today's templates for every configured assignee
// and tells each one about newly created tasks.
func (s *Scheduler) RunMorning(ctx context.Context) MorningReport {
	today := s.Today()
	report := MorningReport{Date: today}

	for _, r := range s.materializer.RunAll(ctx, today) {
		report.Assignees++
		if r.Err != nil {
			report.Failed++
			continue
		}
		if len(r.Created) == 0 {
			continue
		}
		report.Created += len(r.Created)

		var b strings.Builder
		fmt.Fprintf(&b, "New tasks for %s:", today)
		for _, t := range r.Created {
			b.WriteString("\n- " + t.Title)
		}
		if s.sender.Send(ctx, notify.Message{Trigger: notify.TriggerMorning, ChatID: r.AssigneeID, Text: b.String()}) {
			report.Notified++
		}
	}

	s.logger.Info("morning run finished",
		zap.String("date", today.String()),
		zap.Int("created", report.Created),
		zap.Int("notified", report.Notified),
		zap.Int("failed", report.Failed))
	return report
}

// RunEvening carries today's open tasks to tomorrow, reminds assignees with
// open work and posts the group summary when one is configured. A failed
// rollover is returned; reminders are still attempted.
func (s *Scheduler) RunEvening(ctx context.Context) (EveningReport, error) {
	today := s.Today()
	report := EveningReport{From: today, To: today.AddDays(1)}

	carried, rollErr := s.roller.RollOver(ctx, report.From, report.To)
	report.Carried = len(carried)

	lines, err := s.reporter.Summary(ctx, today)
	if err != nil {
		s.logger.Error("evening summary failed", zap.String("date", today.String()), zap.Error(err))
		return report, errors.Join(rollErr, err)
	}

	for _, line := range lines {
		if line.Stats.Open == 0 {
			continue
		}
		text := fmt.Sprintf("You have %d open task(s) for %s. They move to %s.", line.Stats.Open, today, report.To)
		if s.sender.Send(ctx, notify.Message{Trigger: notify.TriggerEvening, ChatID: line.AssigneeID, Text: text}) {
			report.Reminded++
		}
	}

	if s.cfg.GroupChatID != "" {
		report.Summary = s.sender.Send(ctx, notify.Message{
			Trigger: notify.TriggerSummary,
			ChatID:  s.cfg.GroupChatID,
			Text:    stats.FormatSummary(today, lines),
		})
	}

	s.logger.Info("evening run finished",
		zap.String("from", report.From.String()),
		zap.String("to", report.To.String()),
		zap.Int("carried", report.Carried),
		zap.Int("reminded", report.Reminded))
	return report, rollErr
}

func parseClock(value string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
