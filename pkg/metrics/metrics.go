// Package metrics provides Prometheus metrics for external storage traffic.
package metrics

import (
	"errors"
	"net/http"

	"rtblob/pkg/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtblob"

// Result labels
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

var (
	storeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_store_total",
			Help:      "Total Store calls against the external backend.",
		},
		[]string{"backend", "result"},
	)

	storeBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_store_bytes_total",
			Help:      "Bytes handed to the external backend by successful Store calls.",
		},
		[]string{"backend"},
	)

	getTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_get_total",
			Help:      "Total Get calls against the external backend.",
		},
		[]string{"backend", "result"},
	)

	decodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_decode_failures_total",
			Help:      "Externally stored contents that could not be rendered.",
		},
		[]string{"reason"},
	)
)

// RecordStore 记录一次 Store
func RecordStore(backend string, size int, err error) {
	if err != nil {
		storeTotal.WithLabelValues(backend, ResultError).Inc()
		return
	}
	storeTotal.WithLabelValues(backend, ResultOK).Inc()
	storeBytes.WithLabelValues(backend).Add(float64(size))
}

// RecordGet 记录一次 Get；not-found 单独计数，方便发现被误删的对象
func RecordGet(backend string, err error) {
	switch {
	case err == nil:
		getTotal.WithLabelValues(backend, ResultOK).Inc()
	case errors.Is(err, storage.ErrNotFound):
		getTotal.WithLabelValues(backend, ResultNotFound).Inc()
	default:
		getTotal.WithLabelValues(backend, ResultError).Inc()
	}
}

// RecordDecodeFailure 记录一次读路径降级为空内容
func RecordDecodeFailure(reason string) {
	decodeFailures.WithLabelValues(reason).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
