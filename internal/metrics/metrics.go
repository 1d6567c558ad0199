package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ernie/gamefinder/internal/domain"
)

var (
	coaches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefinder_coaches",
		Help: "Number of coaches currently in the matchmaking pool",
	})
	teams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefinder_teams",
		Help: "Number of activated teams",
	})
	matches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefinder_matches",
		Help: "Number of candidate matches in the graph",
	})
	dialogs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefinder_dialogs",
		Help: "Number of active start dialogs",
	})
	launches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamefinder_launches_total",
		Help: "Total number of launched matches",
	})
	droppedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamefinder_dropped_events",
		Help: "Change notifications dropped on a full channel",
	})
)

// Observe updates the metrics from a graph change event
func Observe(event domain.Event) {
	switch event.Type {
	case domain.EventGraphUpdated:
		if data, ok := event.Data.(domain.GraphUpdatedEvent); ok {
			coaches.Set(float64(data.Coaches))
			teams.Set(float64(data.Teams))
			matches.Set(float64(data.Matches))
			dialogs.Set(float64(data.Dialogs))
		}
	case domain.EventMatchLaunched:
		launches.Inc()
	}
}

// SetDroppedEvents reports the dropped notification count
func SetDroppedEvents(n uint64) {
	droppedEvents.Set(float64(n))
}

// Handler returns the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
