package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fablehouse/reader-server/internal/errors"
	"github.com/fablehouse/reader-server/internal/model"
)

func newReaderService(deviceRepo *mockDeviceRepo, childRepo *mockChildProfileRepo) *ReaderService {
	return &ReaderService{
		deviceRepo: deviceRepo,
		childRepo:  childRepo,
		now:        func() time.Time { return fixedNow },
	}
}

func pairedDeviceToday() *model.Device {
	return &model.Device{
		ID:                   "dev-row-1",
		ParentID:             "parent-1",
		ActiveChildProfileID: "child-1",
		DeviceID:             "tablet-1",
		Status:               model.DeviceStatusPaired,
		DailyUsageDate:       "2026-03-14",
		DailyUsageMinutes:    0,
	}
}

func TestDateKeyUTC(t *testing.T) {
	t.Run("formats as ISO date in UTC", func(t *testing.T) {
		assert.Equal(t, "2026-03-14", dateKeyUTC(fixedNow))
	})

	t.Run("converts non-UTC wall clocks", func(t *testing.T) {
		// 23:30 in UTC-5 is already the next day in UTC.
		loc := time.FixedZone("UTC-5", -5*60*60)
		late := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
		assert.Equal(t, "2026-03-15", dateKeyUTC(late))
	})
}

func TestReaderServiceResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("blank device id resolves unpaired", func(t *testing.T) {
		service := newReaderService(&mockDeviceRepo{}, &mockChildProfileRepo{})

		rc, err := service.Resolve(ctx, "   ")
		require.NoError(t, err)
		assert.Nil(t, rc)
	})

	t.Run("unknown device resolves unpaired", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(nil, nil)
		service := newReaderService(deviceRepo, &mockChildProfileRepo{})

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		assert.Nil(t, rc)
	})

	t.Run("disabled device resolves unpaired", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		dev := pairedDeviceToday()
		dev.Status = model.DeviceStatusDisabled
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		service := newReaderService(deviceRepo, &mockChildProfileRepo{})

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		assert.Nil(t, rc)
	})

	t.Run("inactive child disables device and resolves unpaired", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(pairedDeviceToday(), nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(nil, nil)
		deviceRepo.On("Disable", ctx, "tablet-1").Return(nil)
		service := newReaderService(deviceRepo, childRepo)

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		assert.Nil(t, rc)
		deviceRepo.AssertCalled(t, "Disable", ctx, "tablet-1")
	})

	t.Run("paired device resolves full context", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageMinutes = 12
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("TouchLastSeen", ctx, "tablet-1").Return(nil)
		service := newReaderService(deviceRepo, childRepo)

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.True(t, rc.IsPaired)
		assert.Equal(t, "Mina", rc.ChildName)
		assert.Equal(t, 30, rc.DailyLimitMinutes)
		assert.Equal(t, 12, rc.UsedMinutes)
		assert.Equal(t, 18, rc.RemainingMinutes)
		assert.False(t, rc.IsLocked)
	})

	t.Run("stale usage date rolls over to zero", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageDate = "2026-03-13"
		dev.DailyUsageMinutes = 30
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ResetDailyWindow", ctx, "tablet-1", "2026-03-14").Return(true, nil)
		deviceRepo.On("TouchLastSeen", ctx, "tablet-1").Return(nil)
		service := newReaderService(deviceRepo, childRepo)

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.Equal(t, 0, rc.UsedMinutes)
		assert.Equal(t, 30, rc.RemainingMinutes)
		assert.False(t, rc.IsLocked)
	})

	t.Run("exhausted quota reads as locked", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageMinutes = 30
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("TouchLastSeen", ctx, "tablet-1").Return(nil)
		service := newReaderService(deviceRepo, childRepo)

		rc, err := service.Resolve(ctx, "tablet-1")
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.Equal(t, 0, rc.RemainingMinutes)
		assert.True(t, rc.IsLocked)
	})
}

func TestReaderServiceConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("requires device id", func(t *testing.T) {
		service := newReaderService(&mockDeviceRepo{}, &mockChildProfileRepo{})
		_, err := service.Consume(ctx, "", 5)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, apperrors.GetCode(err))
	})

	t.Run("rejects non-positive minutes", func(t *testing.T) {
		service := newReaderService(&mockDeviceRepo{}, &mockChildProfileRepo{})

		_, err := service.Consume(ctx, "tablet-1", 0)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

		_, err = service.Consume(ctx, "tablet-1", -3)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

		// Fractional minutes floor before validation, so 0.9 is rejected too.
		_, err = service.Consume(ctx, "tablet-1", 0.9)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("unknown device is not found", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(nil, nil)
		service := newReaderService(deviceRepo, &mockChildProfileRepo{})

		_, err := service.Consume(ctx, "tablet-1", 5)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("disabled device is not found", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		dev := pairedDeviceToday()
		dev.Status = model.DeviceStatusDisabled
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		service := newReaderService(deviceRepo, &mockChildProfileRepo{})

		_, err := service.Consume(ctx, "tablet-1", 5)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("inactive child rejects consumption", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(pairedDeviceToday(), nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(nil, nil)
		service := newReaderService(deviceRepo, childRepo)

		_, err := service.Consume(ctx, "tablet-1", 5)
		assert.Equal(t, apperrors.ErrCodeChildInactive, apperrors.GetCode(err))
	})

	t.Run("debits requested minutes within quota", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageMinutes = 10
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 5, 30).
			Return(&model.UsageDebit{UsedBefore: 10, UsedAfter: 15}, nil)
		service := newReaderService(deviceRepo, childRepo)

		result, err := service.Consume(ctx, "tablet-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, result.ConsumedMinutes)
		assert.Equal(t, 15, result.UsedMinutes)
		assert.Equal(t, 15, result.RemainingMinutes)
		assert.Equal(t, 30, result.DailyLimitMinutes)
		assert.False(t, result.IsLocked)
	})

	t.Run("clamps debit to remaining balance", func(t *testing.T) {
		// 25 of 30 minutes used; a 10-minute report consumes only 5 and
		// locks the quota.
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageMinutes = 25
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 10, 30).
			Return(&model.UsageDebit{UsedBefore: 25, UsedAfter: 30}, nil)
		service := newReaderService(deviceRepo, childRepo)

		result, err := service.Consume(ctx, "tablet-1", 10)
		require.NoError(t, err)
		assert.Equal(t, 5, result.ConsumedMinutes)
		assert.Equal(t, 30, result.UsedMinutes)
		assert.Equal(t, 0, result.RemainingMinutes)
		assert.True(t, result.IsLocked)
	})

	t.Run("exhausted quota rejects with daily limit", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageMinutes = 30
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 1, 30).
			Return(&model.UsageDebit{Locked: true}, nil)
		service := newReaderService(deviceRepo, childRepo)

		_, err := service.Consume(ctx, "tablet-1", 1)
		assert.Equal(t, apperrors.ErrCodeQuotaLocked, apperrors.GetCode(err))
	})

	t.Run("stale usage date resets before the debit", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		dev := pairedDeviceToday()
		dev.DailyUsageDate = "2026-03-13"
		dev.DailyUsageMinutes = 30
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(dev, nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ResetDailyWindow", ctx, "tablet-1", "2026-03-14").Return(true, nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 5, 30).
			Return(&model.UsageDebit{UsedBefore: 0, UsedAfter: 5}, nil)
		service := newReaderService(deviceRepo, childRepo)

		result, err := service.Consume(ctx, "tablet-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, result.ConsumedMinutes)
		assert.Equal(t, 25, result.RemainingMinutes)
		deviceRepo.AssertCalled(t, "ResetDailyWindow", ctx, "tablet-1", "2026-03-14")
	})

	t.Run("current usage date skips the reset", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(pairedDeviceToday(), nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 5, 30).
			Return(&model.UsageDebit{UsedBefore: 0, UsedAfter: 5}, nil)
		service := newReaderService(deviceRepo, childRepo)

		_, err := service.Consume(ctx, "tablet-1", 5)
		require.NoError(t, err)
		deviceRepo.AssertNotCalled(t, "ResetDailyWindow", ctx, "tablet-1", "2026-03-14")
	})

	t.Run("fractional minutes floor before the debit", func(t *testing.T) {
		deviceRepo := &mockDeviceRepo{}
		childRepo := &mockChildProfileRepo{}
		deviceRepo.On("FindByDeviceID", ctx, "tablet-1").Return(pairedDeviceToday(), nil)
		childRepo.On("FindActiveByIDForParent", ctx, "child-1", "parent-1").Return(activeChild(), nil)
		deviceRepo.On("ConsumeUsage", ctx, "tablet-1", "2026-03-14", 7, 30).
			Return(&model.UsageDebit{UsedBefore: 0, UsedAfter: 7}, nil)
		service := newReaderService(deviceRepo, childRepo)

		result, err := service.Consume(ctx, "tablet-1", 7.8)
		require.NoError(t, err)
		assert.Equal(t, 7, result.ConsumedMinutes)
	})
}
