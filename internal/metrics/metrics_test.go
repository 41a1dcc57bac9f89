package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMustRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegister(reg) })
	require.Panics(t, func() { MustRegister(reg) })
}

func TestStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ok", Status(nil))
	require.Equal(t, "error", Status(errors.New("x")))

	c := Commands.WithLabelValues("probe", Status(nil))
	before := testutil.ToFloat64(c)
	c.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(c))
}
