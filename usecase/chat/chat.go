package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
	"github.com/fastygo/taskledger/usecase"
	"github.com/fastygo/taskledger/usecase/materialize"
	"github.com/fastygo/taskledger/usecase/stats"
)

type Tasks interface {
	Today() domain.Date
	Inbox(ctx context.Context, assigneeID string, date domain.Date) ([]domain.Task, error)
	AssignText(ctx context.Context, creatorID, assigneeID string, date domain.Date, text string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	Toggle(ctx context.Context, id string) (*repository.ToggleResult, error)
}

type Materializer interface {
	RunAll(ctx context.Context, date domain.Date) []materialize.Result
}

type Reporter interface {
	Summary(ctx context.Context, date domain.Date) ([]stats.SummaryLine, error)
}

type Identity interface {
	EnsureUser(ctx context.Context, externalID, handle, displayName string) (*domain.User, error)
	IsAdmin(ctx context.Context, id string) (bool, error)
	ListAdmins(ctx context.Context) ([]string, error)
	AddAdmin(ctx context.Context, id string) ([]string, error)
	RemoveAdmin(ctx context.Context, id string) ([]string, error)
}

// Message is an inbound chat update.
type Message struct {
	ActorID  string `json:"actor_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Text     string `json:"text"`
}

// Reply is the text to send back to the chat.
type Reply struct {
	Text  string `json:"text"`
	Admin bool   `json:"admin"`
}

// UseCase turns chat messages into ledger operations.
type UseCase struct {
	dispatcher   *usecase.Dispatcher
	tasks        Tasks
	materializer Materializer
	reporter     Reporter
	identity     Identity
	logger       *zap.Logger
}

func New(tasks Tasks, materializer Materializer, reporter Reporter, identity Identity, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		dispatcher:   usecase.NewDispatcher(),
		tasks:        tasks,
		materializer: materializer,
		reporter:     reporter,
		identity:     identity,
		logger:       logger,
	}
	uc.register()
	return uc
}

func (uc *UseCase) register() {
	d := uc.dispatcher
	d.RegisterCommand("start", "list commands", uc.start)
	d.RegisterCommand("myid", "show your id", uc.myID)
	d.RegisterCommand("inbox", "today's tasks", uc.inbox)
	d.RegisterCommand("toggle", "<task id> mark done or reopen", uc.toggle)
	d.RegisterAdminCommand("assign", "<assignee id> [date] then one task per line", uc.assign)
	d.RegisterAdminCommand("status", "today's progress", uc.status)
	d.RegisterAdminCommand("daily_now", "create today's recurring tasks", uc.dailyNow)
	d.RegisterAdminCommand("admins", "list admins", uc.admins)
	d.RegisterAdminCommand("addadmin", "<id> grant admin", uc.addAdmin)
	d.RegisterAdminCommand("rmadmin", "<id> revoke admin", uc.removeAdmin)
}

// Handle records the sender and runs the command in msg. Validation and
// permission problems come back as reply text; only infrastructure failures
// are returned as errors.
func (uc *UseCase) Handle(ctx context.Context, msg Message) (*Reply, error) {
	user, err := uc.identity.EnsureUser(ctx, msg.ActorID, msg.Username, msg.FullName)
	if err != nil {
		return nil, err
	}
	admin, err := uc.identity.IsAdmin(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if _, _, ok := usecase.ParseCommand(msg.Text); !ok {
		return &Reply{Text: "Send /start to see the available commands.", Admin: admin}, nil
	}

	actor := usecase.Actor{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		Admin:       admin,
	}
	text, err := uc.dispatcher.Execute(ctx, actor, msg.Text)
	if err != nil {
		if userFacing(err) {
			return &Reply{Text: err.Error(), Admin: admin}, nil
		}
		uc.logger.Error("chat command failed", zap.String("actor_id", actor.ID), zap.Error(err))
		return nil, err
	}
	return &Reply{Text: text, Admin: admin}, nil
}

func userFacing(err error) bool {
	for _, code := range []domain.ErrorCode{
		domain.ErrCodeInvalid,
		domain.ErrCodeNotFound,
		domain.ErrCodeForbidden,
		domain.ErrCodeConflict,
	} {
		if domain.IsDomainError(err, code) {
			return true
		}
	}
	return false
}

func (uc *UseCase) start(_ context.Context, cmd usecase.Command) (string, error) {
	name := cmd.Actor.DisplayName
	if name == "" {
		name = cmd.Actor.ID
	}
	return fmt.Sprintf("Hello, %s!\n%s", name, uc.dispatcher.Help(cmd.Actor.Admin)), nil
}

func (uc *UseCase) myID(_ context.Context, cmd usecase.Command) (string, error) {
	return "Your id: " + cmd.Actor.ID, nil
}

func (uc *UseCase) inbox(ctx context.Context, cmd usecase.Command) (string, error) {
	today := uc.tasks.Today()
	tasks, err := uc.tasks.Inbox(ctx, cmd.Actor.ID, today)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "No tasks for " + today.String() + ".", nil
	}
	var b strings.Builder
	b.WriteString("Tasks for " + today.String() + ":")
	for i, t := range tasks {
		mark := " "
		if t.IsCompleted() {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n%d. [%s] %s (%s)", i+1, mark, t.Title, t.ID)
	}
	return b.String(), nil
}

func (uc *UseCase) toggle(ctx context.Context, cmd usecase.Command) (string, error) {
	fields := cmd.Fields()
	if len(fields) != 1 {
		return "", domain.NewError(domain.ErrCodeInvalid, "usage: /toggle <task id>")
	}
	task, err := uc.tasks.GetTask(ctx, fields[0])
	if err != nil {
		return "", err
	}
	if task.AssigneeID != cmd.Actor.ID && !cmd.Actor.Admin {
		return "", domain.ErrForbidden
	}
	result, err := uc.tasks.Toggle(ctx, task.ID)
	if err != nil {
		return "", err
	}
	if result.Task.IsCompleted() {
		return "Done: " + result.Task.Title, nil
	}
	return "Reopened: " + result.Task.Title, nil
}

func (uc *UseCase) assign(ctx context.Context, cmd usecase.Command) (string, error) {
	fields := cmd.Fields()
	if len(fields) == 0 || len(fields) > 2 {
		return "", domain.NewError(domain.ErrCodeInvalid, "usage: /assign <assignee id> [YYYY-MM-DD], then one task per line")
	}
	date := uc.tasks.Today()
	if len(fields) == 2 {
		parsed, err := domain.ParseDate(fields[1])
		if err != nil {
			return "", err
		}
		date = parsed
	}
	created, err := uc.tasks.AssignText(ctx, cmd.Actor.ID, fields[0], date, cmd.Body())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %d task(s) for %s on %s.", len(created), fields[0], date), nil
}

func (uc *UseCase) status(ctx context.Context, _ usecase.Command) (string, error) {
	today := uc.tasks.Today()
	lines, err := uc.reporter.Summary(ctx, today)
	if err != nil {
		return "", err
	}
	return stats.FormatSummary(today, lines), nil
}

func (uc *UseCase) dailyNow(ctx context.Context, _ usecase.Command) (string, error) {
	today := uc.tasks.Today()
	results := uc.materializer.RunAll(ctx, today)
	created, assignees, failed := 0, 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if len(r.Created) > 0 {
			created += len(r.Created)
			assignees++
		}
	}
	reply := fmt.Sprintf("Created %d task(s) for %d assignee(s) on %s.", created, assignees, today)
	if failed > 0 {
		reply += fmt.Sprintf(" %d assignee(s) failed, see logs.", failed)
	}
	return reply, nil
}

func (uc *UseCase) admins(ctx context.Context, _ usecase.Command) (string, error) {
	admins, err := uc.identity.ListAdmins(ctx)
	if err != nil {
		return "", err
	}
	if len(admins) == 0 {
		return "No admins configured.", nil
	}
	return "Admins: " + strings.Join(admins, ", "), nil
}

func (uc *UseCase) addAdmin(ctx context.Context, cmd usecase.Command) (string, error) {
	fields := cmd.Fields()
	if len(fields) != 1 {
		return "", domain.NewError(domain.ErrCodeInvalid, "usage: /addadmin <id>")
	}
	if _, err := uc.identity.AddAdmin(ctx, fields[0]); err != nil {
		return "", err
	}
	return "Admin added: " + fields[0], nil
}

func (uc *UseCase) removeAdmin(ctx context.Context, cmd usecase.Command) (string, error) {
	fields := cmd.Fields()
	if len(fields) != 1 {
		return "", domain.NewError(domain.ErrCodeInvalid, "usage: /rmadmin <id>")
	}
	if _, err := uc.identity.RemoveAdmin(ctx, fields[0]); err != nil {
		return "", err
	}
	return "Admin removed: " + fields[0], nil
}
