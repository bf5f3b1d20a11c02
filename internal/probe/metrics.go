package probe

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the probe collectors. A nil *Metrics records nothing.
type Metrics struct {
	started       prometheus.Counter
	finished      *prometheus.CounterVec
	bytesReceived prometheus.Counter
	running       prometheus.Gauge
	averageSpeed  prometheus.Histogram
}

// NewMetrics creates the probe collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lgprobe",
			Subsystem: "probe",
			Name:      "started_total",
			Help:      "Total number of probes started",
		}),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lgprobe",
				Subsystem: "probe",
				Name:      "finished_total",
				Help:      "Total number of probes that reached a terminal phase",
			},
			[]string{"phase"},
		),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lgprobe",
			Subsystem: "probe",
			Name:      "received_bytes_total",
			Help:      "Payload bytes received across all probes",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lgprobe",
			Subsystem: "probe",
			Name:      "running",
			Help:      "Probes currently running",
		}),
		averageSpeed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lgprobe",
			Subsystem: "probe",
			Name:      "average_speed_bytes_per_second",
			Help:      "Final average throughput of finished probes",
			// 128 KiB/s .. ~32 GiB/s
			Buckets: prometheus.ExponentialBuckets(1<<17, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.started, m.finished, m.bytesReceived, m.running, m.averageSpeed)
	}
	return m
}

func (m *Metrics) probeStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.running.Inc()
}

func (m *Metrics) chunkReceived(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) probeFinished(st State) {
	if m == nil {
		return
	}
	m.running.Dec()
	m.finished.WithLabelValues(string(st.Phase)).Inc()
	if st.Phase == PhaseCompleted {
		m.averageSpeed.Observe(st.AverageSpeed)
	}
}
