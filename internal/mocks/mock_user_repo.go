package mocks

import (
	"context"

	"github.com/trebla915/web1111-sub002/internal/domain"
)

type MockUserRepo struct {
	GetByIDFunc func(ctx context.Context, id string) (*domain.User, error)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}
