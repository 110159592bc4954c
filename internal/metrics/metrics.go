package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PairingCodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reader_pairing_codes_issued_total",
		Help: "Pairing codes issued to parents.",
	})

	PairingCodesClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reader_pairing_codes_claimed_total",
		Help: "Pairing codes successfully claimed by devices.",
	})

	PairingClaimsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reader_pairing_claims_rejected_total",
		Help: "Claim attempts rejected, by reason.",
	}, []string{"reason"})

	ReadingMinutesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reader_minutes_consumed_total",
		Help: "Reading minutes debited across all devices.",
	})

	QuotaLocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reader_quota_locks_total",
		Help: "Consume calls refused because the daily limit was exhausted.",
	})
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
