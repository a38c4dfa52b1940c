package ledger

import (
	"context"
	"sort"
	"strings"

	"github.com/fastygo/taskledger/domain"
	"github.com/fastygo/taskledger/internal/infrastructure/docstore"
)

// Users is the identity registry view of the ledger.
type Users struct {
	repo *Repository
}

// Users returns the user repository sharing r's document and lock.
func (r *Repository) Users() *Users {
	return &Users{repo: r}
}

func (u *Users) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var found *domain.User
	err := u.repo.view(ctx, func(doc *docstore.Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == id {
				user := doc.Users[i]
				found = &user
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (u *Users) Ensure(ctx context.Context, id, handle, displayName string) (*domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidPayload
	}
	var result domain.User
	err := u.repo.update(ctx, func(doc *docstore.Document) (bool, error) {
		now := u.repo.Now()
		for i := range doc.Users {
			if doc.Users[i].ID != id {
				continue
			}
			user := &doc.Users[i]
			before := *user
			user.Merge(handle, displayName)
			if user.Handle == before.Handle && user.DisplayName == before.DisplayName {
				result = *user
				return false, nil
			}
			user.UpdatedAt = now
			result = *user
			return true, nil
		}
		result = domain.User{
			ID:          id,
			Handle:      handle,
			DisplayName: displayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		doc.Users = append(doc.Users, result)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (u *Users) List(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := u.repo.view(ctx, func(doc *docstore.Document) error {
		users = append(users, doc.Users...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}
