package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fablehouse/reader-server/internal/httputil"
	"github.com/fablehouse/reader-server/internal/model"
)

const (
	// DeviceIDHeader is the conventional way reading clients identify
	// themselves; a deviceId query parameter is accepted as fallback.
	DeviceIDHeader = "X-Device-ID"

	ReaderContextKey contextKey = "readerContext"
	DeviceIDKey      contextKey = "deviceID"
)

// ContextResolver is the single integration point the gating middleware
// consumes; implemented by service.ReaderService.
type ContextResolver interface {
	Resolve(ctx context.Context, deviceID string) (*model.ReaderContext, error)
}

// GetReaderContext returns the resolved context, or nil when the request
// carries no device id or the device is unpaired.
func GetReaderContext(ctx context.Context) *model.ReaderContext {
	if rc, ok := ctx.Value(ReaderContextKey).(*model.ReaderContext); ok {
		return rc
	}
	return nil
}

// GetDeviceID returns the raw device id attached to the request, if any.
func GetDeviceID(ctx context.Context) string {
	if id, ok := ctx.Value(DeviceIDKey).(string); ok {
		return id
	}
	return ""
}

func DeviceIDFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(DeviceIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("deviceId"))
}

type ReaderContextMiddleware struct {
	resolver ContextResolver
}

func NewReaderContextMiddleware(resolver ContextResolver) *ReaderContextMiddleware {
	return &ReaderContextMiddleware{resolver: resolver}
}

// Attach resolves the reader context for the request's device id, when one
// is present. It never rejects: requests without a device id simply carry no
// context and downstream policy decides what that means.
func (m *ReaderContextMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := DeviceIDFromRequest(r)
		if deviceID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), DeviceIDKey, deviceID)

		rc, err := m.resolver.Resolve(ctx, deviceID)
		if err != nil {
			log.Error().Err(err).Str("deviceId", deviceID).Msg("resolve reader context")
			httputil.WriteError(w, err)
			return
		}
		if rc != nil {
			ctx = context.WithValue(ctx, ReaderContextKey, rc)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePairedDevice rejects requests whose device is not paired.
func RequirePairedDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := GetReaderContext(r.Context())
		if rc == nil || !rc.IsPaired {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Paired device is required. Provide " + DeviceIDHeader + " header.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// EnforceDailyLimit refuses content access once the device's quota is
// exhausted. Unpaired requests pass through; pairing policy is a separate
// concern.
func EnforceDailyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := GetReaderContext(r.Context())
		if rc != nil && rc.IsPaired && rc.RemainingMinutes <= 0 {
			writeJSON(w, http.StatusLocked, map[string]string{
				"error": "Daily reading limit reached for this child profile",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
