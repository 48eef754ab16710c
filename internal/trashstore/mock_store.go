package trashstore

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStore) MoveToStore(ctx context.Context, path string, trashedAt time.Time) (string, error) {
	args := m.Called(ctx, path, trashedAt)
	return args.String(0), args.Error(1)
}

func (m *MockStore) EnumerateStore(ctx context.Context) ([]Entry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Entry), args.Error(1)
}

func (m *MockStore) RestoreFromStore(ctx context.Context, location string, dest string) error {
	args := m.Called(ctx, location, dest)
	return args.Error(0)
}

func (m *MockStore) Probe(location string) (bool, error) {
	args := m.Called(location)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Purge(ctx context.Context, location string) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}
