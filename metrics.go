package main

import (
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planchette_connections_total",
		Help: "Websocket connections accepted since startup.",
	})

	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planchette_events_total",
		Help: "Inbound client events handled, by event type.",
	}, []string{"type"})
)

func registerMetricsHandlers(cfg *Config, mux *httprouter.Router, mgr *BoardManager) {
	prometheus.MustRegister(connectionsTotal, eventsTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "planchette_open_rooms",
			Help: "Rooms with at least one connected member.",
		}, func() float64 {
			return float64(len(mgr.Rooms()))
		}),
	)

	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.Handler())
}
