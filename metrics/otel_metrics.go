// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pathfuse/pathfuse/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	fsErrorCategoryKey = "fs_error_category"
	fsOpKey            = "fs_op"
	handlerOpKey       = "handler_op"
)

type histogramRecord struct {
	ctx        context.Context
	instrument metric.Int64Histogram
	value      int64
	attributes metric.RecordOption
}

// counterEntry is the running total for one attribute combination.
type counterEntry struct {
	value atomic.Int64
	opt   metric.ObserveOption
}

// counterVec accumulates an observable counter per attribute combination.
// Totals are reported when the reader collects.
type counterVec struct {
	name    string
	keys    []string
	entries sync.Map // joined attribute values -> *counterEntry
}

func newCounterVec(name string, keys ...string) *counterVec {
	return &counterVec{name: name, keys: keys}
}

func (c *counterVec) add(inc int64, values ...string) {
	if inc < 0 {
		logger.Errorf("Counter metric %s received a negative increment: %d", c.name, inc)
		return
	}
	key := strings.Join(values, "\x00")
	e, ok := c.entries.Load(key)
	if !ok {
		kvs := make([]attribute.KeyValue, len(values))
		for i, v := range values {
			kvs[i] = attribute.String(c.keys[i], v)
		}
		e, _ = c.entries.LoadOrStore(key, &counterEntry{opt: metric.WithAttributeSet(attribute.NewSet(kvs...))})
	}
	e.(*counterEntry).value.Add(inc)
}

func (c *counterVec) observe(_ context.Context, obsrv metric.Int64Observer) error {
	c.entries.Range(func(_, v any) bool {
		e := v.(*counterEntry)
		conditionallyObserve(obsrv, &e.value, e.opt)
		return true
	})
	return nil
}

type otelMetrics struct {
	ch chan histogramRecord
	wg *sync.WaitGroup

	fsOpsCount                    *counterVec
	fsOpsErrorCount               *counterVec
	handlerPanicCount             *counterVec
	handlerUnclassifiedErrorCount *counterVec

	fsOpsLatency      metric.Int64Histogram
	fsOpsLatencyAttrs sync.Map // fsOp -> metric.RecordOption
}

func (o *otelMetrics) FsOpsCount(inc int64, fsOp string) {
	o.fsOpsCount.add(inc, fsOp)
}

func (o *otelMetrics) FsOpsErrorCount(inc int64, fsErrorCategory string, fsOp string) {
	o.fsOpsErrorCount.add(inc, fsErrorCategory, fsOp)
}

func (o *otelMetrics) FsOpsLatency(ctx context.Context, latency time.Duration, fsOp string) {
	opt, ok := o.fsOpsLatencyAttrs.Load(fsOp)
	if !ok {
		opt, _ = o.fsOpsLatencyAttrs.LoadOrStore(fsOp, metric.RecordOption(metric.WithAttributeSet(attribute.NewSet(attribute.String(fsOpKey, fsOp)))))
	}
	record := histogramRecord{ctx: ctx, instrument: o.fsOpsLatency, value: latency.Microseconds(), attributes: opt.(metric.RecordOption)}
	select {
	case o.ch <- record: // Do nothing
	default: // Unblock writes to channel if it's full.
	}
}

func (o *otelMetrics) HandlerPanicCount(inc int64, handlerOp string) {
	o.handlerPanicCount.add(inc, handlerOp)
}

func (o *otelMetrics) HandlerUnclassifiedErrorCount(inc int64, handlerOp string) {
	o.handlerUnclassifiedErrorCount.add(inc, handlerOp)
}

// NewOTelMetrics registers the pathfuse instruments with the global meter
// provider. Histogram samples are recorded by a pool of workers fed through a
// channel of the given size; samples are dropped when it is full.
func NewOTelMetrics(ctx context.Context, workers int, bufferSize int) (*otelMetrics, error) {
	ch := make(chan histogramRecord, bufferSize)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range ch {
				if record.attributes != nil {
					record.instrument.Record(record.ctx, record.value, record.attributes)
				} else {
					record.instrument.Record(record.ctx, record.value)
				}
			}
		}()
	}
	meter := otel.Meter("pathfuse")

	o := &otelMetrics{
		ch:                            ch,
		wg:                            &wg,
		fsOpsCount:                    newCounterVec("fs/ops_count", fsOpKey),
		fsOpsErrorCount:               newCounterVec("fs/ops_error_count", fsErrorCategoryKey, fsOpKey),
		handlerPanicCount:             newCounterVec("handler/panic_count", handlerOpKey),
		handlerUnclassifiedErrorCount: newCounterVec("handler/unclassified_error_count", handlerOpKey),
	}

	_, err0 := meter.Int64ObservableCounter("fs/ops_count",
		metric.WithDescription("The cumulative number of ops processed by the file system."),
		metric.WithUnit(""),
		metric.WithInt64Callback(o.fsOpsCount.observe))

	_, err1 := meter.Int64ObservableCounter("fs/ops_error_count",
		metric.WithDescription("The cumulative number of errors generated by file system operations."),
		metric.WithUnit(""),
		metric.WithInt64Callback(o.fsOpsErrorCount.observe))

	fsOpsLatency, err2 := meter.Int64Histogram("fs/ops_latency",
		metric.WithDescription("The cumulative distribution of file system operation latencies"),
		metric.WithUnit("us"),
		metric.WithExplicitBucketBoundaries(50, 100, 200, 400, 800, 1200, 2000, 5000, 10000, 20000, 50000, 100000, 200000, 500000, 1000000, 2000000, 5000000, 10000000))

	_, err3 := meter.Int64ObservableCounter("handler/panic_count",
		metric.WithDescription("The cumulative number of handler callbacks that panicked."),
		metric.WithUnit(""),
		metric.WithInt64Callback(o.handlerPanicCount.observe))

	_, err4 := meter.Int64ObservableCounter("handler/unclassified_error_count",
		metric.WithDescription("The cumulative number of handler failures answered with the default errno."),
		metric.WithUnit(""),
		metric.WithInt64Callback(o.handlerUnclassifiedErrorCount.observe))

	if err := errors.Join(err0, err1, err2, err3, err4); err != nil {
		close(ch)
		wg.Wait()
		return nil, err
	}
	o.fsOpsLatency = fsOpsLatency
	return o, nil
}

// Close stops the histogram workers after draining queued samples.
func (o *otelMetrics) Close() {
	close(o.ch)
	o.wg.Wait()
}

func conditionallyObserve(obsrv metric.Int64Observer, counter *atomic.Int64, obsrvOptions ...metric.ObserveOption) {
	if val := counter.Load(); val > 0 {
		obsrv.Observe(val, obsrvOptions...)
	}
}
