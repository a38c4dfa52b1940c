package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fastygo/taskledger/domain"
)

// Actor is the chat user issuing a command.
type Actor struct {
	ID          string
	Handle      string
	DisplayName string
	Admin       bool
}

// Command is a parsed slash command.
type Command struct {
	Name  string
	Args  string
	Actor Actor
}

// Fields splits the first line of Args on whitespace.
func (c Command) Fields() []string {
	first, _, _ := strings.Cut(c.Args, "\n")
	return strings.Fields(first)
}

// Body returns everything after the first line of Args.
func (c Command) Body() string {
	_, rest, _ := strings.Cut(c.Args, "\n")
	return rest
}

type CommandHandler func(ctx context.Context, cmd Command) (string, error)

type registration struct {
	handler   CommandHandler
	adminOnly bool
	help      string
}

type Dispatcher struct {
	handlers map[string]registration
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]registration),
	}
}

func (d *Dispatcher) RegisterCommand(name, help string, handler CommandHandler) {
	d.register(name, help, handler, false)
}

// RegisterAdminCommand registers a handler only admins may run.
func (d *Dispatcher) RegisterAdminCommand(name, help string, handler CommandHandler) {
	d.register(name, help, handler, true)
}

func (d *Dispatcher) register(name, help string, handler CommandHandler, adminOnly bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[normalizeName(name)] = registration{handler: handler, adminOnly: adminOnly, help: help}
}

// Execute parses text and runs the matching handler on behalf of actor.
func (d *Dispatcher) Execute(ctx context.Context, actor Actor, text string) (string, error) {
	name, args, ok := ParseCommand(text)
	if !ok {
		return "", domain.NewError(domain.ErrCodeInvalid, "not a command")
	}

	d.mu.RLock()
	reg, found := d.handlers[name]
	d.mu.RUnlock()
	if !found {
		return "", domain.NewError(domain.ErrCodeInvalid, "unknown command /"+name)
	}
	if reg.adminOnly && !actor.Admin {
		return "", domain.ErrForbidden
	}
	return reg.handler(ctx, Command{Name: name, Args: args, Actor: actor})
}

// Help lists the commands visible to an actor, one per line.
func (d *Dispatcher) Help(admin bool) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name, reg := range d.handlers {
		if reg.adminOnly && !admin {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("/" + name)
		if help := d.handlers[name].help; help != "" {
			b.WriteString(" - " + help)
		}
	}
	return b.String()
}

// ParseCommand splits "/name@bot args..." into a lower-cased name and the
// remaining text. Multi-line arguments are preserved, so text after a bare
// "/name" line is reachable through Command.Body.
func ParseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args := text[1:], ""
	if i := strings.IndexAny(head, " \t\n"); i >= 0 {
		head, args = head[:i], strings.TrimLeft(head[i:], " \t")
	}
	name := normalizeName(head)
	if name == "" {
		return "", "", false
	}
	return name, args, true
}

func normalizeName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}
