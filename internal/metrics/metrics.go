package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mall"

// Recorder 结算、库存与订单状态指标，同时提供 HTTP 请求指标
type Recorder struct {
	registry *prometheus.Registry

	checkouts       *prometheus.CounterVec
	checkoutLatency *prometheus.HistogramVec
	stockUnits      *prometheus.CounterVec
	lockWait        prometheus.Histogram
	transitions     *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
}

// NewRecorder 创建指标记录器，使用独立 registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	r := &Recorder{
		registry: registry,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		checkoutLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_ms",
			Help:      "Checkout latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"outcome"}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "decremented_units_total",
			Help:      "Stock units reserved by checkout.",
		}, []string{"product_id"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "lock_wait_ms",
			Help:      "Time spent acquiring product row locks in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "transitions_total",
			Help:      "Order status transitions by actor.",
		}, []string{"actor", "from", "to"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}
	registry.MustRegister(
		r.checkouts,
		r.checkoutLatency,
		r.stockUnits,
		r.lockWait,
		r.transitions,
		r.requests,
		r.requestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry 暴露 registry 供测试采集
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CheckoutFinished 记录一次结算结果
func (r *Recorder) CheckoutFinished(kind string, elapsed time.Duration) {
	r.checkouts.WithLabelValues(kind).Inc()
	r.checkoutLatency.WithLabelValues(kind).Observe(float64(elapsed.Milliseconds()))
}

// StockDecremented 记录一次库存扣减
func (r *Recorder) StockDecremented(productID uint, quantity int, lockWait time.Duration) {
	r.stockUnits.WithLabelValues(strconv.FormatUint(uint64(productID), 10)).Add(float64(quantity))
	r.lockWait.Observe(float64(lockWait.Milliseconds()))
}

// OrderTransitioned 记录一次订单状态流转
func (r *Recorder) OrderTransitioned(actor, from, to string) {
	r.transitions.WithLabelValues(actor, from, to).Inc()
}

// GinMiddleware HTTP 请求计数与耗时，handler 标签取路由模板
func (r *Recorder) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		r.requests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestLatency.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

// Handler /metrics 输出
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
