package observability

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRedisHookCountsCredentialLookups(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hook, err := newRedisMetricsHook(provider.Meter("redis-test"), client)
	if err != nil {
		t.Fatalf("create hook: %v", err)
	}
	client.AddHook(hook)

	if err := client.HSet(ctx, "svc:credential:1", "hash", "h").Err(); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if err := client.HSet(ctx, "svc:session:1", "k", "v").Err(); err != nil {
		t.Fatalf("hset: %v", err)
	}
	client.HGetAll(ctx, "svc:credential:1")
	client.HGetAll(ctx, "svc:credential:2")
	client.HGetAll(ctx, "svc:credential:3")
	client.HGetAll(ctx, "svc:session:1")

	if found, absent := hook.foundAtomic.Load(), hook.absentAtomic.Load(); found != 1 || absent != 2 {
		t.Fatalf("expected 1 found and 2 absent credential reads, got found=%d absent=%d", found, absent)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	byResult := map[string]int64{}
	var ratio float64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "redis.credential.lookups":
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					v, _ := dp.Attributes.Value("result")
					byResult[v.AsString()] += dp.Value
				}
			case "redis.credential.lookup.found_ratio":
				ratio = m.Data.(metricdata.Gauge[float64]).DataPoints[0].Value
			}
		}
	}
	if byResult["found"] != 1 || byResult["absent"] != 2 {
		t.Fatalf("unexpected lookup counts %v", byResult)
	}
	if ratio < 0.33 || ratio > 0.34 {
		t.Fatalf("expected found ratio near 1/3, got %f", ratio)
	}
}

func TestRedisHookCountsTransactionConflicts(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	hook, err := newRedisMetricsHook(provider.Meter("redis-test"), client)
	if err != nil {
		t.Fatalf("create hook: %v", err)
	}
	client.AddHook(hook)

	key := "svc:credential:1"
	err = client.Watch(ctx, func(tx *redis.Tx) error {
		if err := other.HSet(ctx, key, "failed", "1").Err(); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "failed", "2")
			return nil
		})
		return err
	}, key)
	if err != redis.TxFailedErr {
		t.Fatalf("expected aborted transaction, got %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	var conflicts int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "redis.credential.tx.conflicts" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					conflicts += dp.Value
				}
			}
		}
	}
	if conflicts != 1 {
		t.Fatalf("expected one conflict, got %d", conflicts)
	}
}

func TestClassifyRedisError(t *testing.T) {
	if got := classifyRedisError(redis.TxFailedErr); got != "tx_conflict" {
		t.Fatalf("expected tx_conflict, got %s", got)
	}
	if got := redisCommandStatus(redis.Nil); got != "miss" {
		t.Fatalf("expected miss, got %s", got)
	}
}
