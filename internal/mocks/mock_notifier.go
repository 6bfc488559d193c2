package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/trebla915/web1111-sub002/internal/domain"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
