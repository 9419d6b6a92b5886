package noise

import "github.com/prometheus/client_golang/prometheus"

// Counter is the minimal metrics collaborator this module emits through.
// A caller wires in whatever backend it likes; a MetricsSink built from
// these is an optional constructor argument, not a hard dependency.
type Counter interface {
	Inc()
	Add(delta float64)
}

// MetricsSink exposes the counters this module increments as it drives
// handshakes and secured streams. A nil field on a Sink passed to a
// Transport is tolerated: metrics.go's helpers no-op on a nil Counter.
type MetricsSink struct {
	HandshakeSuccesses Counter
	HandshakeErrors    Counter
	EncryptedPackets   Counter
	DecryptedPackets   Counter
	DecryptErrors      Counter
}

func incIfSet(c Counter) {
	if c != nil {
		c.Inc()
	}
}

// NopSink returns a MetricsSink whose counters discard every
// increment, for callers that don't want Prometheus (or anything else)
// wired in — the façade's default when no Sink is supplied.
func NopSink() *MetricsSink {
	return &MetricsSink{
		HandshakeSuccesses: nopCounter{},
		HandshakeErrors:    nopCounter{},
		EncryptedPackets:   nopCounter{},
		DecryptedPackets:   nopCounter{},
		DecryptErrors:      nopCounter{},
	}
}

type nopCounter struct{}

func (nopCounter) Inc()            {}
func (nopCounter) Add(delta float64) {}

// prometheusCounter adapts a prometheus.Counter to this module's Counter
// interface; client_golang's prometheus.Counter already satisfies
// Inc()/Add(float64), so this wrapper exists only to keep metrics.go's
// public surface independent of the prometheus import for callers that
// use NopSink.
type prometheusCounter struct {
	c prometheus.Counter
}

func (p prometheusCounter) Inc()              { p.c.Inc() }
func (p prometheusCounter) Add(delta float64) { p.c.Add(delta) }

// These are the fixed Prometheus-style metric names this module
// registers; changing them is a breaking change for any dashboard or
// alert built against them.
const (
	metricHandshakeSuccesses = "libp2p_noise_xxhandshake_successes_total"
	metricHandshakeErrors    = "libp2p_noise_xxhandshake_error_total"
	metricEncryptedPackets   = "libp2p_noise_encrypted_packets_total"
	metricDecryptedPackets   = "libp2p_noise_decrypted_packets_total"
	metricDecryptErrors      = "libp2p_noise_decrypt_errors_total"
)

// NewPrometheusSink registers the five fixed counters on reg (pass
// prometheus.DefaultRegisterer for the global registry) and returns a
// Sink backed by them. Registration errors (e.g. a second Transport
// registering against the same registry) are returned rather than
// panicking, since prometheus.MustRegister's panic-on-duplicate behavior
// is inappropriate for a library that may be constructed more than once
// in a process.
func NewPrometheusSink(reg prometheus.Registerer) (*MetricsSink, error) {
	successes := prometheus.NewCounter(prometheus.CounterOpts{Name: metricHandshakeSuccesses, Help: "Noise handshakes completed successfully."})
	errs := prometheus.NewCounter(prometheus.CounterOpts{Name: metricHandshakeErrors, Help: "Noise handshakes that failed."})
	encrypted := prometheus.NewCounter(prometheus.CounterOpts{Name: metricEncryptedPackets, Help: "Transport packets encrypted."})
	decrypted := prometheus.NewCounter(prometheus.CounterOpts{Name: metricDecryptedPackets, Help: "Transport packets decrypted."})
	decryptErrs := prometheus.NewCounter(prometheus.CounterOpts{Name: metricDecryptErrors, Help: "Transport packets that failed decryption."})

	for _, c := range []prometheus.Collector{successes, errs, encrypted, decrypted, decryptErrs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &MetricsSink{
		HandshakeSuccesses: prometheusCounter{successes},
		HandshakeErrors:    prometheusCounter{errs},
		EncryptedPackets:   prometheusCounter{encrypted},
		DecryptedPackets:   prometheusCounter{decrypted},
		DecryptErrors:      prometheusCounter{decryptErrs},
	}, nil
}
