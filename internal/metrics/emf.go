// Package metrics emits AWS CloudWatch Embedded Metrics Format (EMF) lines.
// Each flush writes one JSON document; on Lambda, CloudWatch extracts the
// metrics from stdout. Locally the output can be redirected or discarded.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sync"
	"time"
)

// Namespace is the CloudWatch namespace for all ChatCut metrics.
const Namespace = "ChatCut"

// CloudWatch units used by ChatCut.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type directive struct {
	Timestamp         int64       `json:"Timestamp"`
	CloudWatchMetrics []metricSet `json:"CloudWatchMetrics"`
}

type metricSet struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder collects one EMF document. Use one Recorder per operation; it is
// not safe for concurrent use.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	units      map[string]string
	values     map[string]float64
	properties map[string]any
}

var (
	lambdaFunction = sync.OnceValue(func() string { return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") })

	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects flushed documents. Pass io.Discard to disable metrics.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	out = w
}

// New creates a Recorder. On Lambda the FunctionName dimension is added.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: map[string]string{},
		units:      map[string]string{},
		values:     map[string]float64{},
		properties: map[string]any{},
	}
	if fn := lambdaFunction(); fn != "" {
		r.dimensions["FunctionName"] = fn
	}
	return r
}

func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric sets a metric value. Setting the same name twice keeps the last.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.units[name] = unit
	r.values[name] = value
	return r
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Count records a count of 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a field that is searchable in Logs Insights but is not a
// metric.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as one JSON line. Nothing is written when no
// metric was set.
func (r *Recorder) Flush() {
	if len(r.values) == 0 {
		return
	}

	defs := make([]metricDef, 0, len(r.values))
	for _, name := range slices.Sorted(maps.Keys(r.values)) {
		defs = append(defs, metricDef{Name: name, Unit: r.units[name]})
	}

	// Properties first so a dimension or metric of the same name wins.
	doc := make(map[string]any, len(r.properties)+len(r.dimensions)+len(r.values)+1)
	maps.Copy(doc, r.properties)
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = directive{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []metricSet{{
			Namespace:  r.namespace,
			Dimensions: [][]string{slices.Sorted(maps.Keys(r.dimensions))},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: marshal metrics: %v\n", err)
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(data))
}
