// Package mockstorage provides a testify-based mock implementation
// of the URL mapping store used by the service package.
// It is used for unit testing by simulating storage behavior.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// StorageMock is a testify mock that implements every store operation.
//
// Use it in tests to simulate database behavior, including failures
// that the in-memory store cannot produce.
type StorageMock struct {
	mock.Mock
}

// EnsureSchema mocks the schema bootstrap.
func (m *StorageMock) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Exists mocks the token presence check.
func (m *StorageMock) Exists(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

// Insert mocks storing a new mapping.
func (m *StorageMock) Insert(ctx context.Context, originalURL, token string) error {
	args := m.Called(ctx, originalURL, token)
	return args.Error(0)
}

// Lookup mocks resolving a token into its destination.
func (m *StorageMock) Lookup(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the store.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
