// Package metrics tracks codec throughput and latency with Prometheus
// collectors registered on a package-level registry.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("parquet", metrics.OpRead)
//	t, err := parquet.ReadFile(path)
//	timer.Done(t.NumRows(), size)
//
// The CLI dumps the registry in the Prometheus text format when asked to
// with WriteText.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Operation labels.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// RowsRead counts rows decoded, labelled by format.
	RowsRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpandas_rows_read_total",
			Help: "Total number of rows decoded",
		},
		[]string{"format"},
	)

	// RowsWritten counts rows encoded, labelled by format.
	RowsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpandas_rows_written_total",
			Help: "Total number of rows encoded",
		},
		[]string{"format"},
	)

	// BytesRead counts stored bytes consumed by decoders.
	BytesRead = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpandas_bytes_read_total",
			Help: "Total number of stored bytes decoded",
		},
		[]string{"format"},
	)

	// BytesWritten counts stored bytes produced by encoders.
	BytesWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpandas_bytes_written_total",
			Help: "Total number of stored bytes encoded",
		},
		[]string{"format"},
	)

	// CodecDuration observes whole-file encode and decode latency in seconds.
	CodecDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "cpandas_codec_duration_seconds",
			Help: "Duration of whole-table encode and decode calls",
			Buckets: []float64{
				1e-4, // 100µs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms
				1,
				10,
				60,
			},
		},
		[]string{"format", "op"},
	)
)

// Timer measures one encode or decode call.
type Timer struct {
	start  time.Time
	format string
	op     string
}

// NewTimer starts timing op on format.
func NewTimer(format, op string) *Timer {
	return &Timer{start: time.Now(), format: format, op: op}
}

// Stop returns the elapsed time without recording anything.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Done records the duration along with the row and byte counts of a
// successful call, and returns the duration.
func (t *Timer) Done(rows int, bytes int64) time.Duration {
	d := t.Stop()
	CodecDuration.WithLabelValues(t.format, t.op).Observe(d.Seconds())
	switch t.op {
	case OpRead:
		RowsRead.WithLabelValues(t.format).Add(float64(rows))
		BytesRead.WithLabelValues(t.format).Add(float64(bytes))
	case OpWrite:
		RowsWritten.WithLabelValues(t.format).Add(float64(rows))
		BytesWritten.WithLabelValues(t.format).Add(float64(bytes))
	}
	return d
}

// WriteText writes every collector in Registry in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
