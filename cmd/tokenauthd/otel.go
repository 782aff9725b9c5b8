package main

import (
	"context"
	"time"

	"github.com/MrEthical07/tokenauth/internal/logging"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newMeterProvider returns an SDK provider whose only reader is collected
// on demand by logMetrics.
func newMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}

// logMetrics collects reader every interval until ctx is done and writes
// one log line per collection.
func logMetrics(ctx context.Context, reader sdkmetric.Reader, logger logging.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kv, err := collectMetrics(ctx, reader)
			if err != nil {
				logger.Warn(ctx, "collect metrics", "error", err)
				continue
			}
			logger.Info(ctx, "metrics", kv...)
		}
	}
}

// collectMetrics flattens one collection into name/value pairs, summing
// the data points of each instrument.
func collectMetrics(ctx context.Context, reader sdkmetric.Reader) ([]any, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	var kv []any
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				kv = append(kv, m.Name, sumPoints(data.DataPoints))
			case metricdata.Gauge[int64]:
				kv = append(kv, m.Name, sumPoints(data.DataPoints))
			case metricdata.Gauge[float64]:
				kv = append(kv, m.Name, sumPoints(data.DataPoints))
			case metricdata.Sum[float64]:
				kv = append(kv, m.Name, sumPoints(data.DataPoints))
			}
		}
	}
	return kv, nil
}

func sumPoints[N int64 | float64](points []metricdata.DataPoint[N]) N {
	var total N
	for _, p := range points {
		total += p.Value
	}
	return total
}
