package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fablehouse/reader-server/internal/audit"
	apperrors "github.com/fablehouse/reader-server/internal/errors"
	"github.com/fablehouse/reader-server/internal/metrics"
	"github.com/fablehouse/reader-server/internal/model"
	"github.com/fablehouse/reader-server/internal/repository"
)

const (
	// Visually unambiguous alphabet: no 0/O, 1/I/L.
	pairingCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	pairingCodeLength = 6

	// Insert attempts before giving up on a collision against another
	// pending code.
	maxGenerateAttempts = 8
)

// ClaimResult is returned to the reading device after a successful claim.
type ClaimResult struct {
	Device model.DeviceSummary `json:"device"`
	Child  model.ChildSummary  `json:"childProfile"`
}

type PairingService struct {
	codeRepo   repository.PairingCodeRepository
	childRepo  repository.ChildProfileRepository
	deviceRepo repository.DeviceRepository
	claimStore repository.ClaimStore
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
}

func NewPairingService(
	codeRepo repository.PairingCodeRepository,
	childRepo repository.ChildProfileRepository,
	deviceRepo repository.DeviceRepository,
	claimStore repository.ClaimStore,
	defaultTTL, maxTTL time.Duration,
) *PairingService {
	return &PairingService{
		codeRepo:   codeRepo,
		childRepo:  childRepo,
		deviceRepo: deviceRepo,
		claimStore: claimStore,
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
		now:        time.Now,
	}
}

// Issue creates a pending pairing code for one of the parent's active
// children. Generation retries on a pending-code value collision; the retry
// is internal and invisible to the caller unless the budget is exhausted.
func (s *PairingService) Issue(
	ctx context.Context,
	parentID, childProfileID string,
	expiresInMinutes int,
) (*model.PairingCodeSummary, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, apperrors.MissingRequired("parentId")
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

	ttl := time.Duration(expiresInMinutes) * time.Minute
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	expiresAt := s.now().Add(ttl)

	var pc *model.PairingCode
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := generatePairingCode()
		pc, err = s.codeRepo.Create(ctx, model.CreatePairingCodeParams{
			Code:           code,
			ParentID:       parentID,
			ChildProfileID: childProfileID,
			ExpiresAt:      expiresAt,
		})
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err) {
			return nil, apperrors.Database(err)
		}
		pc = nil
	}
	if pc == nil {
		log.Error().Str("parentId", parentID).Msg("pairing code generation exhausted retry budget")
		return nil, apperrors.Unavailable("Could not generate pairing code. Please retry.")
	}

	metrics.PairingCodesIssued.Inc()
	audit.Log(ctx, audit.Event{
		Type:     audit.EventCodeIssued,
		ParentID: parentID,
		Details:  map[string]interface{}{"childProfileId": childProfileID},
	})
	log.Info().
		Str("code", pc.Code).
		Str("parentId", parentID).
		Time("expiresAt", pc.ExpiresAt).
		Msg("pairing code created")

	return &model.PairingCodeSummary{
		Code:      pc.Code,
		ExpiresAt: pc.ExpiresAt,
		Child:     child.Summary(),
	}, nil
}

// Claim binds a device to the child targeted by a pending code. The code
// flip and the device upsert happen in one transaction; concurrent claims of
// the same code are serialized by the store so exactly one succeeds.
func (s *PairingService) Claim(ctx context.Context, code, deviceID, deviceName string) (*ClaimResult, error) {
	normalizedCode := strings.ToUpper(strings.TrimSpace(code))
	normalizedDeviceID := strings.TrimSpace(deviceID)

	if normalizedCode == "" {
		return nil, apperrors.MissingRequired("code")
	}
	if normalizedDeviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}
	if len(normalizedCode) != pairingCodeLength {
		return nil, apperrors.InvalidInput("code", fmt.Sprintf("must be %d characters", pairingCodeLength))
	}

	pc, err := s.codeRepo.FindPendingByCode(ctx, normalizedCode)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if pc == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "Invalid or already used pairing code")
	}

	if !pc.ExpiresAt.After(s.now()) {
		// Lazy expiry: record the terminal state, then report Gone.
		if err := s.codeRepo.MarkExpired(ctx, normalizedCode); err != nil {
			log.Error().Err(err).Str("code", normalizedCode).Msg("mark pairing code expired")
		}
		metrics.PairingClaimsRejected.WithLabelValues("expired").Inc()
		return nil, apperrors.PairingCodeExpired()
	}

	child, err := s.childRepo.FindActiveByIDForParent(ctx, pc.ChildProfileID, pc.ParentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if child == nil {
		metrics.PairingClaimsRejected.WithLabelValues("child_inactive").Inc()
		return nil, apperrors.ChildProfileInactive()
	}

	existing, err := s.deviceRepo.FindByDeviceID(ctx, normalizedDeviceID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil && existing.ParentID != pc.ParentID {
		audit.Log(ctx, audit.Event{
			Type:     audit.EventClaimRejected,
			DeviceID: normalizedDeviceID,
			Details:  map[string]interface{}{"reason": "cross_parent"},
		})
		metrics.PairingClaimsRejected.WithLabelValues("cross_parent").Inc()
		return nil, apperrors.DeviceOwnedByOtherParent()
	}

	dev, err := s.claimStore.ClaimCodeAndBindDevice(ctx, normalizedCode, model.UpsertDeviceParams{
		DeviceID:             normalizedDeviceID,
		ParentID:             pc.ParentID,
		ActiveChildProfileID: child.ID,
		DeviceName:           strings.TrimSpace(deviceName),
		DailyUsageDate:       dateKeyUTC(s.now()),
	})
	if err != nil {
		if errors.Is(err, repository.ErrCodeAlreadyClaimed) {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "Invalid or already used pairing code")
		}
		return nil, apperrors.Database(err)
	}

	metrics.PairingCodesClaimed.Inc()
	audit.Log(ctx, audit.Event{
		Type:     audit.EventCodeClaimed,
		ParentID: pc.ParentID,
		DeviceID: normalizedDeviceID,
		Details:  map[string]interface{}{"childProfileId": child.ID},
	})
	log.Info().
		Str("code", normalizedCode).
		Str("deviceId", normalizedDeviceID).
		Str("childProfileId", child.ID).
		Msg("device paired")

	return &ClaimResult{
		Device: model.DeviceSummary{
			ID:                dev.ID,
			DeviceID:          dev.DeviceID,
			DeviceName:        dev.DeviceName,
			Status:            dev.Status,
			PairedAt:          dev.PairedAt,
			LastSeenAt:        dev.LastSeenAt,
			DailyUsageDate:    dev.DailyUsageDate,
			DailyUsageMinutes: dev.DailyUsageMinutes,
			ActiveChild:       child.Summary(),
		},
		Child: child.Summary(),
	}, nil
}

// Revoke terminates a pending code on the parent's request.
func (s *PairingService) Revoke(ctx context.Context, parentID, code string) error {
	normalizedCode := strings.ToUpper(strings.TrimSpace(code))
	if normalizedCode == "" {
		return apperrors.MissingRequired("code")
	}

	ok, err := s.codeRepo.Revoke(ctx, parentID, normalizedCode)
	if err != nil {
		return apperrors.Database(err)
	}
	if !ok {
		return apperrors.NotFound("Pending pairing code")
	}

	audit.Log(ctx, audit.Event{
		Type:     audit.EventCodeRevoked,
		ParentID: parentID,
	})
	return nil
}

// ListPending returns the parent's outstanding codes for the portal UI.
func (s *PairingService) ListPending(ctx context.Context, parentID string) ([]model.PairingCode, error) {
	codes, err := s.codeRepo.ListPendingByParent(ctx, parentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func generatePairingCode() string {
	chars := []byte(pairingCodeChars)
	code := make([]byte, pairingCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		code[i] = chars[n.Int64()]
	}
	return string(code)
}
