package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/domain/vehicle"
	"go.uber.org/zap/zaptest"
)

// MockRegistry is a mock implementation of vehicle.Registry
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Lookup(ctx context.Context, registration string) (*vehicle.Summary, error) {
	args := m.Called(ctx, registration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vehicle.Summary), args.Error(1)
}

// MockCache is a mock implementation of vehicle.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, registration string) (*vehicle.Summary, bool, error) {
	args := m.Called(ctx, registration)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*vehicle.Summary), args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, registration string, summary *vehicle.Summary) error {
	args := m.Called(ctx, registration, summary)
	return args.Error(0)
}

var fiesta = &vehicle.Summary{Registration: "AB12CDE", Make: "FORD", Model: "FIESTA", Year: 2019}

func newService(t *testing.T, reg *MockRegistry, cache vehicle.Cache) *LookupService {
	t.Helper()
	return NewLookupService(LookupServiceConfig{
		Registry: reg,
		Cache:    cache,
		Logger:   zaptest.NewLogger(t),
	})
}

func TestLookup_CacheHit(t *testing.T) {
	reg := &MockRegistry{}
	cache := &MockCache{}
	cache.On("Get", mock.Anything, "AB12CDE").Return(fiesta, true, nil)

	got, err := newService(t, reg, cache).Lookup(context.Background(), " ab12 cde ")
	require.NoError(t, err)

	assert.Equal(t, fiesta, got)
	reg.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestLookup_MissFetchesAndStores(t *testing.T) {
	reg := &MockRegistry{}
	cache := &MockCache{}
	cache.On("Get", mock.Anything, "AB12CDE").Return(nil, false, nil)
	reg.On("Lookup", mock.Anything, "AB12CDE").Return(fiesta, nil)
	cache.On("Set", mock.Anything, "AB12CDE", fiesta).Return(nil)

	got, err := newService(t, reg, cache).Lookup(context.Background(), "AB12CDE")
	require.NoError(t, err)

	assert.Equal(t, "FORD", got.Make)
	cache.AssertExpectations(t)
}

func TestLookup_CacheFailuresAreNotFatal(t *testing.T) {
	reg := &MockRegistry{}
	cache := &MockCache{}
	cache.On("Get", mock.Anything, "AB12CDE").Return(nil, false, errors.New("redis down"))
	reg.On("Lookup", mock.Anything, "AB12CDE").Return(fiesta, nil)
	cache.On("Set", mock.Anything, "AB12CDE", fiesta).Return(errors.New("redis down"))

	got, err := newService(t, reg, cache).Lookup(context.Background(), "AB12CDE")
	require.NoError(t, err)
	assert.Equal(t, fiesta, got)
}

func TestLookup_WithoutCache(t *testing.T) {
	reg := &MockRegistry{}
	reg.On("Lookup", mock.Anything, "AB12CDE").Return(fiesta, nil)

	got, err := newService(t, reg, nil).Lookup(context.Background(), "ab12cde")
	require.NoError(t, err)
	assert.Equal(t, fiesta, got)
}

func TestLookup_InvalidRegistration(t *testing.T) {
	reg := &MockRegistry{}

	_, err := newService(t, reg, nil).Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = newService(t, reg, nil).Lookup(context.Background(), "AB-12")
	assert.ErrorIs(t, err, shared.ErrValidation)
	reg.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestLookup_RegistryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", vehicle.ErrVehicleNotFound},
		{"upstream", vehicle.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &MockRegistry{}
			reg.On("Lookup", mock.Anything, "AB12CDE").Return(nil, tt.err)

			_, err := newService(t, reg, nil).Lookup(context.Background(), "AB12CDE")
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
