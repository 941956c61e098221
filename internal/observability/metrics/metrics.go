package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type fanoutLabel struct {
	event  string
	result string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests, stream
// lifecycle events, notification fan-out, and chat activity. Writers are
// coordinated via a RWMutex; the active stream gauge is atomic.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	streamEvents    map[string]uint64
	chatEvents      map[string]uint64
	fanoutEvents    map[fanoutLabel]uint64
	activeStreams   atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		streamEvents:    make(map[string]uint64),
		chatEvents:      make(map[string]uint64),
		fanoutEvents:    make(map[fanoutLabel]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not need
// a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// StreamStarted records a start lifecycle event and increments the active
// stream gauge.
func (r *Recorder) StreamStarted() {
	r.incrementStreamEvent("start")
	r.activeStreams.Add(1)
}

// StreamEnded records an end lifecycle event and decrements the active stream
// gauge, guarding against negative counts when concurrent updates race.
func (r *Recorder) StreamEnded() {
	r.incrementStreamEvent("end")
	r.decrementGauge(&r.activeStreams)
}

// StreamScheduled records the creation of a stream.
func (r *Recorder) StreamScheduled() {
	r.incrementStreamEvent("schedule")
}

func (r *Recorder) incrementStreamEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.streamEvents[normalized]++
	r.mu.Unlock()
}

// ObserveFanout records delivered notifications for an event type. A zero
// count still marks the event as observed.
func (r *Recorder) ObserveFanout(event string, delivered int) {
	label := fanoutLabel{event: normalizeName(event), result: "delivered"}
	r.mu.Lock()
	r.fanoutEvents[label] += uint64(delivered)
	r.mu.Unlock()
}

// ObserveFanoutFailure records a notification write that could not be
// completed for an event type.
func (r *Recorder) ObserveFanoutFailure(event string) {
	label := fanoutLabel{event: normalizeName(event), result: "failed"}
	r.mu.Lock()
	r.fanoutEvents[label]++
	r.mu.Unlock()
}

// ObserveChatEvent records a chat event type for throughput monitoring.
func (r *Recorder) ObserveChatEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.chatEvents[normalized]++
	r.mu.Unlock()
}

// ActiveStreams exposes the current gauge of concurrently live streams.
func (r *Recorder) ActiveStreams() int64 {
	return r.activeStreams.Load()
}

// FanoutCounts returns a copy of the fan-out counters keyed by
// "event/result". Intended for tests and reporting.
func (r *Recorder) FanoutCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.fanoutEvents))
	for label, value := range r.fanoutEvents {
		counts[label.event+"/"+label.result] = value
	}
	return counts
}

// Reset clears all counters and gauges. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.streamEvents = make(map[string]uint64)
	r.chatEvents = make(map[string]uint64)
	r.fanoutEvents = make(map[fanoutLabel]uint64)
	r.activeStreams.Store(0)
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format with sorted label sets
// for stable output.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	streamEvents := sortedKeys(r.streamEvents)
	chatEvents := sortedKeys(r.chatEvents)
	fanoutLabels := r.sortedFanoutLabels()

	fmt.Fprintln(w, "# HELP cookstream_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE cookstream_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "cookstream_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP cookstream_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE cookstream_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "cookstream_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP cookstream_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE cookstream_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "cookstream_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP cookstream_stream_events_total Stream lifecycle events by type")
	fmt.Fprintln(w, "# TYPE cookstream_stream_events_total counter")
	for _, event := range streamEvents {
		fmt.Fprintf(w, "cookstream_stream_events_total{event=\"%s\"} %d\n", event, r.streamEvents[event])
	}

	fmt.Fprintln(w, "# HELP cookstream_active_streams Current number of streams marked as live")
	fmt.Fprintln(w, "# TYPE cookstream_active_streams gauge")
	fmt.Fprintf(w, "cookstream_active_streams %d\n", r.activeStreams.Load())

	fmt.Fprintln(w, "# HELP cookstream_notification_fanout_total Notification fan-out outcomes by event type")
	fmt.Fprintln(w, "# TYPE cookstream_notification_fanout_total counter")
	for _, label := range fanoutLabels {
		fmt.Fprintf(w, "cookstream_notification_fanout_total{event=\"%s\",result=\"%s\"} %d\n", label.event, label.result, r.fanoutEvents[label])
	}

	fmt.Fprintln(w, "# HELP cookstream_chat_events_total Chat events by type")
	fmt.Fprintln(w, "# TYPE cookstream_chat_events_total counter")
	for _, event := range chatEvents {
		fmt.Fprintf(w, "cookstream_chat_events_total{event=\"%s\"} %d\n", event, r.chatEvents[event])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedFanoutLabels() []fanoutLabel {
	labels := make([]fanoutLabel, 0, len(r.fanoutEvents))
	for label := range r.fanoutEvents {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].event != labels[j].event {
			return labels[i].event < labels[j].event
		}
		return labels[i].result < labels[j].result
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest records a request on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// StreamStarted increments counters on the default recorder.
func StreamStarted() {
	defaultRecorder.StreamStarted()
}

// StreamEnded decrements active streams on the default recorder.
func StreamEnded() {
	defaultRecorder.StreamEnded()
}

// StreamScheduled records a stream creation on the default recorder.
func StreamScheduled() {
	defaultRecorder.StreamScheduled()
}

// ObserveFanout records fan-out deliveries on the default recorder.
func ObserveFanout(event string, delivered int) {
	defaultRecorder.ObserveFanout(event, delivered)
}

// ObserveFanoutFailure records a fan-out failure on the default recorder.
func ObserveFanoutFailure(event string) {
	defaultRecorder.ObserveFanoutFailure(event)
}

// ObserveChatEvent records a chat event on the default recorder.
func ObserveChatEvent(event string) {
	defaultRecorder.ObserveChatEvent(event)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
