package repository

import (
	"context"

	"github.com/fastygo/taskledger/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Ensure creates the user on first contact and refreshes handle and name afterwards.
	Ensure(ctx context.Context, id, handle, displayName string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
