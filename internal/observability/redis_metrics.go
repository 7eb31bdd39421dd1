package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient installs command, credential lookup and transaction
// conflict metrics on the client backing the redis credential store. Only the
// first call per process takes effect.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisMetricsHook(otel.Meter(instrumentationScope), client)
		if err != nil {
			logger.Warn("redis observability instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis observability instrumentation enabled")
	})
}

// credentialKeySegment matches the middle segment of the credential store's
// "<prefix>:credential:<user id>" hash keys.
const credentialKeySegment = ":credential:"

type redisMetricsHook struct {
	cmdTotal          metric.Int64Counter
	cmdErrors         metric.Int64Counter
	cmdLatency        metric.Float64Histogram
	credentialLookups metric.Int64Counter
	txConflicts       metric.Int64Counter

	cmdTotalAtomic  atomic.Int64
	cmdErrorAtomic  atomic.Int64
	foundAtomic     atomic.Int64
	absentAtomic    atomic.Int64
	poolStatsReader func() *redis.PoolStats
}

func newRedisMetricsHook(meter metric.Meter, client redis.UniversalClient) (*redisMetricsHook, error) {
	cmdTotal, err := meter.Int64Counter(
		"redis.command.total",
		metric.WithDescription("Redis commands issued by the credential store"),
	)
	if err != nil {
		return nil, err
	}
	cmdErrors, err := meter.Int64Counter(
		"redis.command.errors",
		metric.WithDescription("Redis command errors, excluding nil replies"),
	)
	if err != nil {
		return nil, err
	}
	cmdLatency, err := meter.Float64Histogram(
		"redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"),
	)
	if err != nil {
		return nil, err
	}
	credentialLookups, err := meter.Int64Counter(
		"redis.credential.lookups",
		metric.WithDescription("Credential row reads by whether the row existed"),
	)
	if err != nil {
		return nil, err
	}
	txConflicts, err := meter.Int64Counter(
		"redis.credential.tx.conflicts",
		metric.WithDescription("Reconcile transactions aborted because the watched credential changed"),
	)
	if err != nil {
		return nil, err
	}

	poolSaturationGauge, err := meter.Float64ObservableGauge(
		"redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Redis pool saturation ratio (used_conns / total_conns)"),
	)
	if err != nil {
		return nil, err
	}
	foundRatioGauge, err := meter.Float64ObservableGauge(
		"redis.credential.lookup.found_ratio",
		metric.WithUnit("1"),
		metric.WithDescription("Share of credential reads that found a row"),
	)
	if err != nil {
		return nil, err
	}
	commandErrorRateGauge, err := meter.Float64ObservableGauge(
		"redis.command.error_rate",
		metric.WithUnit("1"),
		metric.WithDescription("Redis command error rate (errors / total commands)"),
	)
	if err != nil {
		return nil, err
	}

	hook := &redisMetricsHook{
		cmdTotal:          cmdTotal,
		cmdErrors:         cmdErrors,
		cmdLatency:        cmdLatency,
		credentialLookups: credentialLookups,
		txConflicts:       txConflicts,
		poolStatsReader:   client.PoolStats,
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, observer metric.Observer) error {
		if stats := hook.poolStatsReader(); stats != nil && stats.TotalConns > 0 {
			used := stats.TotalConns - stats.IdleConns
			observer.ObserveFloat64(poolSaturationGauge, clampRatio(float64(used)/float64(stats.TotalConns)))
		}
		found, absent := hook.foundAtomic.Load(), hook.absentAtomic.Load()
		if found+absent > 0 {
			observer.ObserveFloat64(foundRatioGauge, clampRatio(float64(found)/float64(found+absent)))
		}
		if total := hook.cmdTotalAtomic.Load(); total > 0 {
			observer.ObserveFloat64(commandErrorRateGauge, clampRatio(float64(hook.cmdErrorAtomic.Load())/float64(total)))
		}
		return nil
	}, poolSaturationGauge, foundRatioGauge, commandErrorRateGauge)
	if err != nil {
		return nil, err
	}

	return hook, nil
}

func (h *redisMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.cmdLatency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", strings.ToLower(cmd.Name())),
			attribute.String("status", redisCommandStatus(err)),
		))
		h.observe(ctx, cmd, err)
		return err
	}
}

// ProcessPipelineHook also sees the MULTI/EXEC of a reconcile; an aborted EXEC
// is counted as a transaction conflict.
func (h *redisMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.cmdLatency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", "pipeline"),
			attribute.String("status", redisCommandStatus(err)),
		))
		if errors.Is(err, redis.TxFailedErr) {
			h.txConflicts.Add(ctx, 1)
		}
		for _, cmd := range cmds {
			h.observe(ctx, cmd, cmd.Err())
		}
		return err
	}
}

func (h *redisMetricsHook) observe(ctx context.Context, cmd redis.Cmder, err error) {
	command := strings.ToLower(cmd.Name())
	h.cmdTotalAtomic.Add(1)
	h.cmdTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", redisCommandStatus(err)),
	))
	if err != nil && !errors.Is(err, redis.Nil) {
		h.cmdErrorAtomic.Add(1)
		h.cmdErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("command", command),
			attribute.String("error_type", classifyRedisError(err)),
		))
	}
	found, ok := credentialLookupOutcome(cmd)
	if !ok {
		return
	}
	result := "absent"
	if found {
		h.foundAtomic.Add(1)
		result = "found"
	} else {
		h.absentAtomic.Add(1)
	}
	h.credentialLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	default:
		return "error"
	}
}

func classifyRedisError(err error) string {
	if errors.Is(err, redis.TxFailedErr) {
		return "tx_conflict"
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "connection"):
		return "connection"
	default:
		return "other"
	}
}

// credentialLookupOutcome reports whether cmd read a credential row and, if
// so, whether the row existed. A user with no password yet has no hash key,
// so an empty HGETALL reply is the "no credential" answer, not an error.
func credentialLookupOutcome(cmd redis.Cmder) (found bool, ok bool) {
	if !strings.EqualFold(cmd.Name(), "hgetall") {
		return false, false
	}
	args := cmd.Args()
	if len(args) < 2 {
		return false, false
	}
	key, isString := args[1].(string)
	if !isString || !strings.Contains(key, credentialKeySegment) {
		return false, false
	}
	mapCmd, castOK := cmd.(*redis.MapStringStringCmd)
	if !castOK {
		return false, false
	}
	fields, err := mapCmd.Result()
	if err != nil {
		return false, false
	}
	return len(fields) > 0, true
}

func clampRatio(v float64) float64 {
	return min(max(v, 0), 1)
}
