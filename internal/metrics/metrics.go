// Package metrics exposes the scan's atomic counters as Prometheus
// metrics, registered once at package init and scraped over /metrics when
// the CLI's --metrics-addr flag is set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pktizr_build_info",
		Help: "Build information of pktizr",
	}, []string{"version", "commit", "date"})

	PktCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pktizr_pkt_count",
		Help: "Total number of probes scheduled for this scan: (target, port) tuples times the duplicate count",
	})

	PktSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pktizr_pkt_sent_total",
		Help: "Total number of packets injected onto the raw device",
	})

	PktProbe = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pktizr_pkt_probe_total",
		Help: "Total number of sent packets flagged as observable probes",
	})

	PktRecv = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pktizr_pkt_recv_total",
		Help: "Total number of captured frames handed to the script's recv upcall",
	})

	PktDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pktizr_pkt_dropped_total",
		Help: "Total number of packets dropped before injection, by reason",
	}, []string{"reason"})
)
