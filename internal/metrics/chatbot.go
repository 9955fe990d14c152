package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chatbot pipeline Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "generation_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"model", "kind", "status"}, // kind: "complete" / "stream"
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Name:      "generation_request_duration_seconds",
			Help:      "Time until a generation response (or stream) is opened",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model", "kind"},
	)

	GuardViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "guard_violations_total",
			Help:      "Generated SQL candidates rejected by the query guard",
		},
		[]string{"kind"},
	)

	StructuredQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "structured_queries_total",
			Help:      "Structured retrieval attempts by outcome",
		},
		[]string{"status"}, // "ok" / "rejected" / "error"
	)

	DeliveryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "callback_delivery_attempts_total",
			Help:      "Callback POST attempts by outcome",
		},
		[]string{"outcome"}, // "success" / "failure"
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "requests_total",
			Help:      "Chatbot requests by final state",
		},
		[]string{"state"},
	)

	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chatbot",
			Name:      "request_duration_seconds",
			Help:      "Time from start of background work to the terminal event",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)

	WorkerTasksRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "worker_tasks_rejected_total",
			Help:      "Requests refused because the worker pool was full",
		},
	)

	WorkerPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chatbot",
			Name:      "worker_panics_total",
			Help:      "Worker tasks that panicked and were recovered",
		},
	)
)

var chatbotMetricsRegistered bool

// RegisterChatbotMetrics registers the pipeline metrics. Must be called once from main.
func RegisterChatbotMetrics() {
	if chatbotMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GuardViolationsTotal)
	prometheus.MustRegister(StructuredQueriesTotal)
	prometheus.MustRegister(DeliveryAttemptsTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(WorkerTasksRejectedTotal)
	prometheus.MustRegister(WorkerPanicsTotal)
	chatbotMetricsRegistered = true
}

var workerPoolMetricsRegistered bool

// RegisterWorkerPoolMetrics exposes live pool occupancy. Only the first call registers.
func RegisterWorkerPoolMetrics(running, capacity func() int) {
	if workerPoolMetricsRegistered {
		return
	}
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "chatbot",
			Name:      "worker_running_tasks",
			Help:      "Tasks currently running on the worker pool",
		},
		func() float64 { return float64(running()) },
	))
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "chatbot",
			Name:      "worker_capacity",
			Help:      "Maximum number of concurrently running worker tasks",
		},
		func() float64 { return float64(capacity()) },
	))
	workerPoolMetricsRegistered = true
}
