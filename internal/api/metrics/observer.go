package metrics

import (
	"github.com/rs/zerolog"

	"github.com/99minutos/admin-console/internal/core/domain"
)

var sessionStates = []domain.SessionState{
	domain.StateLoading,
	domain.StateUnauthenticated,
	domain.StateAuthenticated,
}

// Observer implements ports.Observer on top of the package metrics. Failures
// are also logged, since they never reach an HTTP response.
type Observer struct {
	log zerolog.Logger
}

func NewObserver(log zerolog.Logger) *Observer {
	return &Observer{log: log.With().Str("component", "observer").Logger()}
}

func (o *Observer) Outcome(outcome string) {
	SessionResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (o *Observer) Failure(op string, err error) {
	FailuresTotal.WithLabelValues(op).Inc()
	o.log.Debug().Err(err).Str("op", op).Msg("failure reported")
}

func (o *Observer) CacheLookup(resource, result string) {
	CacheLookupsTotal.WithLabelValues(resource, result).Inc()
}

func (o *Observer) Mutation(op, result string) {
	RegistryMutationsTotal.WithLabelValues(op, result).Inc()
}

// TrackSession mirrors a session state into the SessionState gauge.
func TrackSession(state domain.SessionState) {
	for _, s := range sessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		SessionState.WithLabelValues(string(s)).Set(v)
	}
}
