package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fablehouse/reader-server/internal/model"
)

type mockPairingCodeRepo struct {
	mock.Mock
}

func (m *mockPairingCodeRepo) FindPendingByCode(ctx context.Context, code string) (*model.PairingCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) ListPendingByParent(ctx context.Context, parentID string) ([]model.PairingCode, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PairingCode), args.Error(1)
}

func (m *mockPairingCodeRepo) MarkExpired(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockPairingCodeRepo) Revoke(ctx context.Context, parentID, code string) (bool, error) {
	args := m.Called(ctx, parentID, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockPairingCodeRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPairingCodeRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockChildProfileRepo struct {
	mock.Mock
}

func (m *mockChildProfileRepo) FindActiveByID(ctx context.Context, id string) (*model.ChildProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChildProfile), args.Error(1)
}

func (m *mockChildProfileRepo) FindActiveByIDForParent(ctx context.Context, id, parentID string) (*model.ChildProfile, error) {
	args := m.Called(ctx, id, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChildProfile), args.Error(1)
}

func (m *mockChildProfileRepo) BelongsToParent(ctx context.Context, childID, parentID string) (bool, error) {
	args := m.Called(ctx, childID, parentID)
	return args.Bool(0), args.Error(1)
}

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*model.Device, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) ListForParent(ctx context.Context, parentID string) ([]model.DeviceWithChild, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DeviceWithChild), args.Error(1)
}

func (m *mockDeviceRepo) AssignToChild(ctx context.Context, parentID, deviceID, childProfileID string) (*model.Device, error) {
	args := m.Called(ctx, parentID, deviceID, childProfileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) Rename(ctx context.Context, parentID, deviceID, name string) (*model.Device, error) {
	args := m.Called(ctx, parentID, deviceID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) Disable(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *mockDeviceRepo) DisableForParent(ctx context.Context, parentID, deviceID string) (bool, error) {
	args := m.Called(ctx, parentID, deviceID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeviceRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *mockDeviceRepo) ResetDailyWindow(ctx context.Context, deviceID, today string) (bool, error) {
	args := m.Called(ctx, deviceID, today)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeviceRepo) ConsumeUsage(ctx context.Context, deviceID, today string, minutes, limit int) (*model.UsageDebit, error) {
	args := m.Called(ctx, deviceID, today, minutes, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UsageDebit), args.Error(1)
}

type mockClaimStore struct {
	mock.Mock
}

func (m *mockClaimStore) ClaimCodeAndBindDevice(ctx context.Context, code string, params model.UpsertDeviceParams) (*model.Device, error) {
	args := m.Called(ctx, code, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}
