package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/fablehouse/reader-server/internal/errors"
	"github.com/fablehouse/reader-server/internal/model"
	"github.com/fablehouse/reader-server/internal/repository"
)

// DeviceService covers the parent-facing device registry operations.
type DeviceService struct {
	deviceRepo repository.DeviceRepository
	childRepo  repository.ChildProfileRepository
}

func NewDeviceService(
	deviceRepo repository.DeviceRepository,
	childRepo repository.ChildProfileRepository,
) *DeviceService {
	return &DeviceService{
		deviceRepo: deviceRepo,
		childRepo:  childRepo,
	}
}

// AssignToChild re-points a device at another of the parent's active
// children, independent of the pairing-code path. Forces the device back to
// paired; never touches the usage counter.
func (s *DeviceService) AssignToChild(ctx context.Context, parentID, deviceID, childProfileID string) (*model.DeviceSummary, error) {
	normalizedDeviceID := strings.TrimSpace(deviceID)
	if normalizedDeviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}
	if strings.TrimSpace(childProfileID) == "" {
		return nil, apperrors.MissingRequired("childProfileId")
	}

	child, err := s.childRepo.FindActiveByIDForParent(ctx, childProfileID, parentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if child == nil {
		return nil, apperrors.NotFound("Child profile")
	}

	dev, err := s.deviceRepo.AssignToChild(ctx, parentID, normalizedDeviceID, child.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if dev == nil {
		return nil, apperrors.NotFound("Device")
	}

	log.Info().
		Str("deviceId", normalizedDeviceID).
		Str("childProfileId", child.ID).
		Msg("device reassigned to child")

	return deviceSummary(dev, child.Summary()), nil
}

// ListForParent returns the parent's devices newest-first with their bound
// child summaries.
func (s *DeviceService) ListForParent(ctx context.Context, parentID string) ([]model.DeviceSummary, error) {
	rows, err := s.deviceRepo.ListForParent(ctx, parentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	summaries := make([]model.DeviceSummary, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		summaries = append(summaries, *deviceSummary(&row.Device, model.ChildSummary{
			ID:                       row.ActiveChildProfileID,
			Name:                     row.ChildName,
			Age:                      row.ChildAge,
			DailyReadingLimitMinutes: row.ChildDailyLimit,
		}))
	}
	return summaries, nil
}

// Rename updates the parent-visible device label.
func (s *DeviceService) Rename(ctx context.Context, parentID, deviceID, name string) (*model.DeviceSummary, error) {
	normalizedDeviceID := strings.TrimSpace(deviceID)
	trimmedName := strings.TrimSpace(name)
	if normalizedDeviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}
	if trimmedName == "" {
		return nil, apperrors.MissingRequired("deviceName")
	}

	dev, err := s.deviceRepo.Rename(ctx, parentID, normalizedDeviceID, trimmedName)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if dev == nil {
		return nil, apperrors.NotFound("Device")
	}

	return deviceSummary(dev, model.ChildSummary{ID: dev.ActiveChildProfileID}), nil
}

// Unpair disables the device. A fresh pairing-code claim reinstates it.
func (s *DeviceService) Unpair(ctx context.Context, parentID, deviceID string) error {
	normalizedDeviceID := strings.TrimSpace(deviceID)
	if normalizedDeviceID == "" {
		return apperrors.MissingRequired("deviceId")
	}

	ok, err := s.deviceRepo.DisableForParent(ctx, parentID, normalizedDeviceID)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NotFound("Device")
	}

	log.Info().Str("deviceId", normalizedDeviceID).Msg("device unpaired")
	return nil
}

func deviceSummary(dev *model.Device, child model.ChildSummary) *model.DeviceSummary {
	return &model.DeviceSummary{
		ID:                dev.ID,
		DeviceID:          dev.DeviceID,
		DeviceName:        dev.DeviceName,
		Status:            dev.Status,
		PairedAt:          dev.PairedAt,
		LastSeenAt:        dev.LastSeenAt,
		DailyUsageDate:    dev.DailyUsageDate,
		DailyUsageMinutes: dev.DailyUsageMinutes,
		ActiveChild:       child,
	}
}
