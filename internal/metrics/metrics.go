package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)

	// Runs 按结果统计遗传算法的运行次数，result 为 ok、data_error、algorithm_error 或 canceled
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "itinerary_runs_total", Help: "Itinerary scheduler runs by result."},
		[]string{"result"},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "itinerary_run_duration_seconds", Help: "Wall time of one scheduler run.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}},
	)
	Generations = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "itinerary_generations_executed", Help: "Generations executed per run.", Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500}},
	)
	BestFitness = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "itinerary_best_fitness", Help: "Best fitness reached per run.", Buckets: prometheus.ExponentialBuckets(50, 2, 10)},
	)
	MatrixRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "travel_matrix_requests_total", Help: "Travel matrix acquisitions by source."},
		[]string{"source"},
	)
	Jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "itinerary_jobs_total", Help: "Queued itinerary jobs by status."},
		[]string{"status"},
	)
)

var regOnce sync.Once

// Register 注册所有指标，可以重复调用
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(Runs, RunDuration, Generations, BestFitness)
		Registry.MustRegister(MatrixRequests, Jobs)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
