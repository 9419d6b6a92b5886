package noise

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopSink_NeverPanicsAndDiscards(t *testing.T) {
	sink := NopSink()
	incIfSet(sink.HandshakeSuccesses)
	incIfSet(sink.HandshakeErrors)
	incIfSet(sink.EncryptedPackets)
	incIfSet(sink.DecryptedPackets)
	incIfSet(sink.DecryptErrors)
}

func TestIncIfSet_NilCounterIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { incIfSet(nil) })
}

func TestNewPrometheusSink_RegistersFiveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.HandshakeSuccesses.Inc()
	metrics, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, metrics, 5)
}

func TestNewPrometheusSink_DuplicateRegistrationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}
