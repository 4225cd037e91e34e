package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

// Metrics records pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	Claims   *prometheus.CounterVec
	Runs     *prometheus.CounterVec
	Stamps   *prometheus.CounterVec
	Cascades prometheus.Counter
}

var _ usecase.Recorder = (*Metrics)(nil)

// New registers every pipeline metric against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Claims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scorer_claims_total",
			Help: "Claim attempts by outcome (claimed or skipped)",
		}, []string{"outcome"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scorer_runs_total",
			Help: "Finished scoring runs by resulting status",
		}, []string{"status"}),
		Stamps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scorer_stamps_total",
			Help: "Validated credentials by outcome (accepted or rejected)",
		}, []string{"outcome"}),
		Cascades: factory.NewCounter(prometheus.CounterOpts{
			Name: "scorer_cascade_rescores_total",
			Help: "Passports queued for re-scoring after losing credentials",
		}),
	}
}

func (m *Metrics) ClaimObserved(claimed bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if claimed {
		outcome = "claimed"
	}
	m.Claims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StampObserved(accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.Stamps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RunFinished(status domain.ScoreStatus) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) CascadeQueued() {
	if m == nil {
		return
	}
	m.Cascades.Inc()
}
