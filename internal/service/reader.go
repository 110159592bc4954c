package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fablehouse/reader-server/internal/audit"
	apperrors "github.com/fablehouse/reader-server/internal/errors"
	"github.com/fablehouse/reader-server/internal/metrics"
	"github.com/fablehouse/reader-server/internal/model"
	"github.com/fablehouse/reader-server/internal/repository"
)

// dateKeyUTC is the UTC calendar-day key a device's usage counter is scoped
// to, formatted as an ISO date.
func dateKeyUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ReaderService resolves reader contexts and meters reading time.
type ReaderService struct {
	deviceRepo repository.DeviceRepository
	childRepo  repository.ChildProfileRepository
	now        func() time.Time
}

func NewReaderService(
	deviceRepo repository.DeviceRepository,
	childRepo repository.ChildProfileRepository,
) *ReaderService {
	return &ReaderService{
		deviceRepo: deviceRepo,
		childRepo:  childRepo,
		now:        time.Now,
	}
}

// Resolve produces the request-scoped pairing/quota snapshot for a device.
// A nil context (with nil error) means the device is unpaired: unknown id,
// disabled, or bound to a child profile that has gone inactive. In the last
// case the device is defensively flipped to disabled so subsequent requests
// short-circuit until a fresh claim.
func (s *ReaderService) Resolve(ctx context.Context, deviceID string) (*model.ReaderContext, error) {
	normalizedDeviceID := strings.TrimSpace(deviceID)
	if normalizedDeviceID == "" {
		return nil, nil
	}

	dev, err := s.deviceRepo.FindByDeviceID(ctx, normalizedDeviceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if dev == nil || dev.Status != model.DeviceStatusPaired {
		return nil, nil
	}

	child, err := s.childRepo.FindActiveByIDForParent(ctx, dev.ActiveChildProfileID, dev.ParentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if child == nil {
		if err := s.deviceRepo.Disable(ctx, normalizedDeviceID); err != nil {
			log.Error().Err(err).Str("deviceId", normalizedDeviceID).Msg("disable device with inactive child")
		}
		audit.Log(ctx, audit.Event{
			Type:     audit.EventDeviceDisabled,
			ParentID: dev.ParentID,
			DeviceID: normalizedDeviceID,
			Details:  map[string]interface{}{"reason": "child_inactive"},
		})
		return nil, nil
	}

	used, err := s.ensureDailyWindow(ctx, dev)
	if err != nil {
		return nil, err
	}

	if err := s.deviceRepo.TouchLastSeen(ctx, normalizedDeviceID); err != nil {
		log.Warn().Err(err).Str("deviceId", normalizedDeviceID).Msg("touch last seen")
	}

	limit := child.DailyReadingLimitMinutes
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return &model.ReaderContext{
		IsPaired:          true,
		DeviceID:          dev.DeviceID,
		ChildProfileID:    child.ID,
		ChildName:         child.Name,
		ChildAge:          child.Age,
		DailyLimitMinutes: limit,
		UsedMinutes:       used,
		RemainingMinutes:  remaining,
		IsLocked:          remaining <= 0,
	}, nil
}

// Consume debits reading minutes against the device's daily quota. The debit
// is clamped to the remaining balance and applied as a single atomic store
// mutation, so concurrent calls can never jointly overspend. The result
// reports how much was actually debited; callers must not assume the
// requested amount was fully applied.
func (s *ReaderService) Consume(ctx context.Context, deviceID string, minutes float64) (*model.UsageResult, error) {
	normalizedDeviceID := strings.TrimSpace(deviceID)
	if normalizedDeviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}

	requested := int(math.Floor(minutes))
	if requested <= 0 {
		return nil, apperrors.ValidationError("Minutes must be at least 1")
	}

	dev, err := s.deviceRepo.FindByDeviceID(ctx, normalizedDeviceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if dev == nil || dev.Status != model.DeviceStatusPaired {
		return nil, apperrors.NotFound("Paired device")
	}

	child, err := s.childRepo.FindActiveByIDForParent(ctx, dev.ActiveChildProfileID, dev.ParentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if child == nil {
		return nil, apperrors.ChildProfileInactive()
	}

	if _, err := s.ensureDailyWindow(ctx, dev); err != nil {
		return nil, err
	}

	limit := child.DailyReadingLimitMinutes
	today := dateKeyUTC(s.now())

	debit, err := s.deviceRepo.ConsumeUsage(ctx, normalizedDeviceID, today, requested, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if debit.Locked {
		metrics.QuotaLocks.Inc()
		return nil, apperrors.DailyLimitReached()
	}

	consumed := debit.UsedAfter - debit.UsedBefore
	remaining := limit - debit.UsedAfter
	if remaining < 0 {
		remaining = 0
	}

	metrics.ReadingMinutesConsumed.Add(float64(consumed))
	log.Debug().
		Str("deviceId", normalizedDeviceID).
		Int("requested", requested).
		Int("consumed", consumed).
		Int("used", debit.UsedAfter).
		Msg("reading minutes consumed")

	return &model.UsageResult{
		ConsumedMinutes:   consumed,
		UsedMinutes:       debit.UsedAfter,
		RemainingMinutes:  remaining,
		DailyLimitMinutes: limit,
		IsLocked:          remaining <= 0,
	}, nil
}

// ensureDailyWindow applies the lazy day rollover and returns the usage
// counter value that holds after the check.
func (s *ReaderService) ensureDailyWindow(ctx context.Context, dev *model.Device) (int, error) {
	today := dateKeyUTC(s.now())
	if dev.DailyUsageDate == today {
		return dev.DailyUsageMinutes, nil
	}

	reset, err := s.deviceRepo.ResetDailyWindow(ctx, dev.DeviceID, today)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if reset {
		log.Debug().Str("deviceId", dev.DeviceID).Str("date", today).Msg("daily usage window reset")
	}
	dev.DailyUsageDate = today
	dev.DailyUsageMinutes = 0
	return 0, nil
}
