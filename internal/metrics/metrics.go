// Package metrics exposes the store's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRefused = "refused"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	stockReservationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_stock_reservations_total",
		Help: "Stock reservation attempts by result",
	}, []string{"result"}) // success|refused|failure

	cartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_cart_operations_total",
		Help: "Cart operations by kind and result",
	}, []string{"operation", "result"})

	authAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_auth_attempts_total",
		Help: "Registration and login attempts by result",
	}, []string{"operation", "result"})

	initOnce sync.Once
	initErr  error
)

// Init registers all collectors with reg, or the default registerer when reg is nil
func Init(reg prometheus.Registerer) error {
	initOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			stockReservationsTotal,
			cartOperationsTotal,
			authAttemptsTotal,
		} {
			if err := reg.Register(c); err != nil {
				initErr = err
				return
			}
		}
	})
	return initErr
}

// Handler serves the default gatherer
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordReservation counts one ledger reserve call
func RecordReservation(result string) {
	stockReservationsTotal.WithLabelValues(result).Inc()
}

// RecordCartOperation counts one cart engine call
func RecordCartOperation(operation, result string) {
	cartOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordAuthAttempt counts one register or login call
func RecordAuthAttempt(operation, result string) {
	authAttemptsTotal.WithLabelValues(operation, result).Inc()
}

// ResultOf maps an error to the success/failure label
func ResultOf(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// Middleware records request count and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
