package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { Register(reg) })

	DeferredCreated.WithLabelValues("android").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(DeferredCreated.WithLabelValues("android")))

	assert.Panics(t, func() { Register(reg) }, "double registration must fail loudly")
}
