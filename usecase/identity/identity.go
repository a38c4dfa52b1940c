package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/repository"
)

// AdminsKey is the settings key holding the admin id list.
const AdminsKey = "adminIds"

// UseCase owns user records and the admin registry.
type UseCase struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	logger   *zap.Logger

	mu sync.Mutex
}

func New(users repository.UserRepository, settings repository.SettingsRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		settings: settings,
		logger:   logger,
	}
}

// EnsureUser records an actor the first time it is seen and refreshes its
// handle and display name afterwards. Empty values never erase stored ones.
func (uc *UseCase) EnsureUser(ctx context.Context, externalID, handle, displayName string) (*domain.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.ErrInvalidPayload
	}
	user, err := uc.users.Ensure(ctx, externalID, strings.TrimSpace(handle), strings.TrimSpace(displayName))
	if err != nil {
		uc.logger.Error("ensure user failed", zap.String("user_id", externalID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (uc *UseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return uc.users.GetByID(ctx, id)
}

func (uc *UseCase) ListUsers(ctx context.Context) ([]domain.User, error) {
	return uc.users.List(ctx)
}

// LoadAdmins returns the stored admin list, seeding it with initial when
// nothing has been stored yet.
func (uc *UseCase) LoadAdmins(ctx context.Context, initial []string) ([]string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	admins, found, err := uc.readAdmins(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		return admins, nil
	}

	seed := normalizeIDs(initial)
	if len(seed) == 0 {
		return []string{}, nil
	}
	if err := uc.settings.PutSetting(ctx, AdminsKey, seed); err != nil {
		return nil, err
	}
	uc.logger.Info("admin registry seeded", zap.Strings("admins", seed))
	return seed, nil
}

func (uc *UseCase) ListAdmins(ctx context.Context) ([]string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	admins, _, err := uc.readAdmins(ctx)
	return admins, err
}

func (uc *UseCase) IsAdmin(ctx context.Context, id string) (bool, error) {
	admins, err := uc.ListAdmins(ctx)
	if err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	for _, a := range admins {
		if a == id {
			return true, nil
		}
	}
	return false, nil
}

// AddAdmin grants admin rights to id. Adding an existing admin is a no-op.
func (uc *UseCase) AddAdmin(ctx context.Context, id string) ([]string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	admins, _, err := uc.readAdmins(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range admins {
		if a == id {
			return admins, nil
		}
	}
	admins = normalizeIDs(append(admins, id))
	if err := uc.settings.PutSetting(ctx, AdminsKey, admins); err != nil {
		return nil, err
	}
	uc.logger.Info("admin added", zap.String("user_id", id))
	return admins, nil
}

// RemoveAdmin revokes admin rights from id. The last admin cannot be removed.
func (uc *UseCase) RemoveAdmin(ctx context.Context, id string) ([]string, error) {
	id = strings.TrimSpace(id)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	admins, _, err := uc.readAdmins(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(admins))
	for _, a := range admins {
		if a != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(admins) {
		return nil, domain.ErrUserNotFound
	}
	if len(kept) == 0 {
		return nil, domain.ErrLastAdmin
	}
	if err := uc.settings.PutSetting(ctx, AdminsKey, kept); err != nil {
		return nil, err
	}
	uc.logger.Info("admin removed", zap.String("user_id", id))
	return kept, nil
}

func (uc *UseCase) readAdmins(ctx context.Context) ([]string, bool, error) {
	var admins []string
	found, err := uc.settings.GetSetting(ctx, AdminsKey, &admins)
	if err != nil {
		return nil, false, err
	}
	if admins == nil {
		admins = []string{}
	}
	return admins, found, nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
