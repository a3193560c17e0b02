package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/showdown/internal/domain"
	"github.com/victornm/showdown/internal/event"
)

const namespace = "showdown"

// Metrics counts what happens in the session, fed by its domain events.
type Metrics struct {
	roundsStarted prometheus.Counter
	roundsEnded   *prometheus.CounterVec
	answers       *prometheus.CounterVec
	promotions    prometheus.Counter
}

// NewMetrics registers the collectors on reg. connections and players report the number of
// open websocket connections and of players in the session at scrape time.
func NewMetrics(reg prometheus.Registerer, connections, players func() int) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		roundsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Number of rounds started.",
		}),
		roundsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_ended_total",
			Help:      "Number of rounds resolved, by reason.",
		}, []string{"reason"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Number of adjudicated answers, by result.",
		}, []string{"result"}),
		promotions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "master_promotions_total",
			Help:      "Number of times the game master role was handed to another player.",
		}),
	}

	if players != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players",
			Help:      "Number of players in the session.",
		}, func() float64 { return float64(players()) })
	}

	if connections != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of open websocket connections.",
		}, func() float64 { return float64(connections()) })
	}

	return m
}

// Subscribe feeds the metrics from the events of eb.
func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(m.handle,
		domain.EventNameMasterPromoted,
		domain.EventNameRoundStarted,
		domain.EventNameAnswerSubmitted,
		domain.EventNameRoundEnded,
	)
}

func (m *Metrics) handle(_ context.Context, e event.Event) error {
	switch e := e.(type) {
	case domain.EventMasterPromoted:
		m.promotions.Inc()
	case domain.EventRoundStarted:
		m.roundsStarted.Inc()
	case domain.EventAnswerSubmitted:
		result := domain.ResultWrong
		if e.Correct {
			result = domain.ResultCorrect
		}
		m.answers.WithLabelValues(string(result)).Inc()
	case domain.EventRoundEnded:
		m.roundsEnded.WithLabelValues(string(e.Outcome.Reason)).Inc()
	}

	return nil
}
