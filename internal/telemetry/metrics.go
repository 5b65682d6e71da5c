// Package telemetry provides Prometheus metrics for the bot loop.
package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// Counters
	FramesRead         prometheus.Counter
	ChatMessages       prometheus.Counter
	CommandsDispatched prometheus.Counter
	TriggersFired      prometheus.Counter
	Reconnects         prometheus.Counter
	ParseErrors        prometheus.Counter
	RepliesSent        prometheus.Counter

	// Gauges
	ConnectedGauge prometheus.Gauge // 1=connected,0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		FramesRead = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_frames_read_total", Help: "Number of protocol frames read"})
		ChatMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_messages_total", Help: "Number of PRIVMSG frames processed"})
		CommandsDispatched = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_dispatched_total", Help: "Number of commands dispatched"})
		TriggersFired = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_triggers_fired_total", Help: "Number of trigger rules fired"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_reconnects_total", Help: "Number of reconnect cycles"})
		ParseErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_parse_errors_total", Help: "Number of malformed frames dropped"})
		RepliesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_replies_sent_total", Help: "Number of outbound reply chunks"})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_connected", Help: "Connection state 1=connected 0=disconnected"})
	})
}

// SetConnected sets the connection gauge.
func SetConnected(up bool) {
	if ConnectedGauge == nil {
		return
	}
	if up {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

// Inc increments a counter if metrics are initialized. Handy for packages
// that may run under tests without Init.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Serve exposes /metrics on addr. Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
