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

package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pathfuse/pathfuse/cfg"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

func TestPrometheusExporterServesCounters(t *testing.T) {
	ctx := context.Background()
	reg := promclient.NewRegistry()
	exporter, err := newPrometheusExporter(reg)
	require.NoError(t, err)
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	defer provider.Shutdown(ctx)
	counter, err := provider.Meter("test").Int64Counter("test_ops_count")
	require.NoError(t, err)
	counter.Add(ctx, 3, otelmetric.WithAttributes(attribute.String("fs_op", "LookUpInode")))
	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)

	require.NoError(t, err)
	defer resp.Body.Close()
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)
	family, ok := families["test_ops_count"]
	require.True(t, ok, "metric families: %v", families)
	require.Len(t, family.GetMetric(), 1)
	assert.Equal(t, float64(3), family.GetMetric()[0].GetCounter().GetValue())
	labels := family.GetMetric()[0].GetLabel()
	require.Len(t, labels, 1)
	assert.Equal(t, "fs_op", labels[0].GetName())
	assert.Equal(t, "LookUpInode", labels[0].GetValue())
}

func TestSetupPrometheus_DisabledForNonPositivePort(t *testing.T) {
	opts, shutdown := setupPrometheus(0)

	assert.Nil(t, opts)
	assert.Nil(t, shutdown)
}

func TestSetupOTelMetricExporters_NoExporters(t *testing.T) {
	c := &cfg.Config{}

	shutdown := SetupOTelMetricExporters(context.Background(), c, "mount-1")

	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestGetResource(t *testing.T) {
	res, err := getResource(context.Background(), "mount-1")

	require.NoError(t, err)
	v, ok := res.Set().Value(mountIDKey)
	require.True(t, ok)
	assert.Equal(t, "mount-1", v.AsString())
	v, ok = res.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, serviceName, v.AsString())
}
