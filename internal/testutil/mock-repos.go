package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
)

// MockBundleRepo is a mock of BundleRepository.
type MockBundleRepo struct {
	mock.Mock
}

func (m *MockBundleRepo) Create(ctx context.Context, bundle *domain.Bundle) error {
	args := m.Called(ctx, bundle)
	return args.Error(0)
}

func (m *MockBundleRepo) GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Bundle, error) {
	args := m.Called(ctx, projectID, id)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID, uuid.UUID) *domain.Bundle); ok {
		return fn(ctx, projectID, id), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) GetByNameVersion(ctx context.Context, projectID uuid.UUID, name, version string) (*domain.Bundle, error) {
	args := m.Called(ctx, projectID, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bundle), args.Error(1)
}

func (m *MockBundleRepo) List(ctx context.Context, filter ports.BundleListFilter) ([]*domain.Bundle, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Bundle), args.Int(1), args.Error(2)
}

func (m *MockBundleRepo) Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error {
	args := m.Called(ctx, projectID, id)
	return args.Error(0)
}

// MockKServeClient is a mock of KServeClient.
type MockKServeClient struct {
	mock.Mock
}

func (m *MockKServeClient) Deploy(ctx context.Context, namespace string, bundle *domain.Bundle, storageURI string) (*ports.KServeDeployment, error) {
	args := m.Called(ctx, namespace, bundle, storageURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.KServeDeployment), args.Error(1)
}

func (m *MockKServeClient) Undeploy(ctx context.Context, namespace, name string) error {
	args := m.Called(ctx, namespace, name)
	return args.Error(0)
}

func (m *MockKServeClient) GetStatus(ctx context.Context, namespace, name string) (*ports.KServeStatus, error) {
	args := m.Called(ctx, namespace, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.KServeStatus), args.Error(1)
}

func (m *MockKServeClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
