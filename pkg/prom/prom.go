package prom

import (
	"fmt"
	"sync"

	xhttp "github.com/nimasrn/pos-ledger/pkg/http"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemLedger  = "ledger"
	SystemReports = "report"
)

const (
	MetricTicketsCreated       = "tickets_created_total"
	MetricConflicts            = "conflicts_total"
	MetricSalesDayCashVariance = "sales_day_cash_difference_cents"
	MetricReportBuildDuration  = "build_duration_seconds"
	MetricReportCache          = "cache_total"
)

const (
	TypeCounterVec   = "counterVec"
	TypeHistogramVec = "histogramVec"
	TypeGaugeVec     = "gaugeVec"
)

var lockCreateMetricLock = &sync.Mutex{}
var namespace = "pos"

var MetricSystemEnabled = false

var registry = prometheus.NewRegistry()

var MetricCollectionCounterVec = make(map[string]*prometheus.CounterVec)
var MetricCollectionGaugeVec = make(map[string]*prometheus.GaugeVec)
var MetricCollectionHistogramVec = make(map[string]*prometheus.HistogramVec)

var defaultLabels prometheus.Labels

// Create registers the ledger collectors. Until it is called every Add*
// helper is a no-op, which keeps tests and the CLI free of metric state.
func Create(host string, env string, nameSpace string) error {
	lockCreateMetricLock.Lock()
	if MetricSystemEnabled {
		lockCreateMetricLock.Unlock()
		return nil
	}
	defaultLabels = prometheus.Labels{"env": env, "instance": host}
	if nameSpace != "" {
		namespace = nameSpace
	}
	lockCreateMetricLock.Unlock()

	var err error
	hasError := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}

	hasError(CreateMetric(TypeCounterVec, SystemLedger, MetricTicketsCreated, "location"))
	hasError(CreateMetric(TypeCounterVec, SystemLedger, MetricConflicts, "reason"))
	hasError(CreateMetric(TypeGaugeVec, SystemLedger, MetricSalesDayCashVariance, "location"))
	hasError(CreateMetric(TypeHistogramVec, SystemReports, MetricReportBuildDuration, "report_type"))
	hasError(CreateMetric(TypeCounterVec, SystemReports, MetricReportCache, "result"))

	if err == nil {
		MetricSystemEnabled = true
	}
	return err
}

func CreateMetric(metricType, metricSubsystem, metricName string, labels ...string) error {
	lockCreateMetricLock.Lock()
	defer lockCreateMetricLock.Unlock()

	key := metricSubsystem + metricName
	opts := prometheus.Opts{
		Namespace:   namespace,
		Subsystem:   metricSubsystem,
		Name:        metricName,
		Help:        metricSubsystem + " " + metricName,
		ConstLabels: defaultLabels,
	}
	switch metricType {
	case TypeCounterVec:
		MetricCollectionCounterVec[key] = prometheus.NewCounterVec(prometheus.CounterOpts(opts), labels)
		return registry.Register(MetricCollectionCounterVec[key])
	case TypeGaugeVec:
		MetricCollectionGaugeVec[key] = prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), labels)
		return registry.Register(MetricCollectionGaugeVec[key])
	case TypeHistogramVec:
		MetricCollectionHistogramVec[key] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Subsystem:   opts.Subsystem,
			Name:        opts.Name,
			Help:        opts.Help,
			ConstLabels: opts.ConstLabels,
			Buckets:     prometheus.DefBuckets,
		}, labels)
		return registry.Register(MetricCollectionHistogramVec[key])
	}
	return fmt.Errorf("metric type %s is not defined", metricType)
}

// ListenAndServer exposes /metrics and /health on addr. health may be nil.
func ListenAndServer(addr string, url string, health func() error) error {
	s := xhttp.CreateServer()
	s.GET(url, fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	s.GET("/health", func(ctx *xhttp.RequestCtx) {
		if health != nil {
			if err := health(); err != nil {
				ctx.Error(err.Error(), xhttp.StatusServiceUnavailable)
				return
			}
		}
		ctx.SetBodyString("success")
	})
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	return s.ListenAndServe(addr)
}

func AddGaugeVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionGaugeVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] gauge not found", "subsystem", subsystem, "name", name)
}

func AddCounterVec(subsystem, name string, num float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionCounterVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Add(num)
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	AddCounterVec(subsystem, name, 1, labelValues...)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	if !MetricSystemEnabled {
		return
	}
	if v, ok := MetricCollectionHistogramVec[subsystem+name]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func IncTicketCreated(location string) {
	IncCounterVec(SystemLedger, MetricTicketsCreated, location)
}

func IncConflict(reason string) {
	IncCounterVec(SystemLedger, MetricConflicts, reason)
}

func AddSalesDayCashDifference(location string, cents int64) {
	AddGaugeVec(SystemLedger, MetricSalesDayCashVariance, float64(cents), location)
}

func AddReportBuildDuration(seconds float64, reportType string) {
	AddHistogramVec(SystemReports, MetricReportBuildDuration, seconds, reportType)
}

func IncReportCache(result string) {
	IncCounterVec(SystemReports, MetricReportCache, result)
}
