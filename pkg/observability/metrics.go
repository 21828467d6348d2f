package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Graph metrics
	graphRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_graph_runs_total",
			Help: "Total number of graph runs",
		},
		[]string{"graph", "status"},
	)

	graphRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_graph_run_duration_seconds",
			Help:    "Graph run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"graph"},
	)

	graphSteps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_graph_steps",
			Help:    "Supersteps executed per graph run",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"graph"},
	)

	// Node metrics
	nodeExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_node_executions_total",
			Help: "Total number of node executions",
		},
		[]string{"graph", "node", "status"},
	)

	nodeExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_node_execution_duration_seconds",
			Help:    "Node execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"graph", "node"},
	)

	// LLM metrics
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_llm_calls_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"provider", "model", "status"},
	)

	llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_llm_call_duration_seconds",
			Help:    "LLM provider call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	llmTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_llm_tokens_total",
			Help: "Total LLM tokens consumed",
		},
		[]string{"provider", "model", "direction"},
	)

	// Tool metrics
	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_tool_calls_total",
			Help: "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_tool_call_duration_seconds",
			Help:    "Tool call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// Checkpoint metrics
	checkpointOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_checkpoint_operations_total",
			Help: "Total number of checkpoint store operations",
		},
		[]string{"operation", "status"},
	)

	// gRPC metrics
	grpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentgraph_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	grpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentgraph_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// System metrics
	activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentgraph_active_runs",
			Help: "Number of graph runs currently executing",
		},
	)

	goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentgraph_goroutines",
			Help: "Number of goroutines",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all Prometheus metrics. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			graphRunsTotal,
			graphRunDuration,
			graphSteps,
			nodeExecutionsTotal,
			nodeExecutionDuration,
			llmCallsTotal,
			llmCallDuration,
			llmTokensTotal,
			toolCallsTotal,
			toolCallDuration,
			checkpointOpsTotal,
			grpcRequestsTotal,
			grpcRequestDuration,
			activeRuns,
			goroutines,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordGraphRun records one completed graph run.
func RecordGraphRun(graph, status string, steps int, duration time.Duration) {
	graphRunsTotal.WithLabelValues(graph, status).Inc()
	graphRunDuration.WithLabelValues(graph).Observe(duration.Seconds())
	graphSteps.WithLabelValues(graph).Observe(float64(steps))
}

// RecordNodeExecution records one node execution.
func RecordNodeExecution(graph, node, status string, duration time.Duration) {
	nodeExecutionsTotal.WithLabelValues(graph, node, status).Inc()
	nodeExecutionDuration.WithLabelValues(graph, node).Observe(duration.Seconds())
}

// RecordLLMCall records one LLM provider call.
func RecordLLMCall(provider, model, status string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(provider, model, status).Inc()
	llmCallDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage for an LLM call.
func RecordLLMTokens(provider, model string, prompt, completion int) {
	llmTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	llmTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completion))
}

// RecordToolCall records one tool call.
func RecordToolCall(tool, status string, duration time.Duration) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordCheckpointOp records one checkpoint store operation.
func RecordCheckpointOp(operation, status string) {
	checkpointOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordGRPCRequest records gRPC request metrics
func RecordGRPCRequest(method, status string, duration time.Duration) {
	grpcRequestsTotal.WithLabelValues(method, status).Inc()
	grpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncActiveRuns increments the active runs gauge.
func IncActiveRuns() {
	activeRuns.Inc()
}

// DecActiveRuns decrements the active runs gauge.
func DecActiveRuns() {
	activeRuns.Dec()
}

// SetGoroutines sets the goroutines gauge
func SetGoroutines(count int) {
	goroutines.Set(float64(count))
}
