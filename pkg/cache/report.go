package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const reportKeyPrefix = "clover:report:"

// ComputeFunc produces a fresh report on a cache miss
type ComputeFunc func(ctx context.Context) (*models.Report, error)

// ReportCache stores reports by input fingerprint
type ReportCache struct {
	store   Store
	locker  *Locker
	ttl     time.Duration
	lockTTL time.Duration
	logger  ectologger.Logger
}

func NewReportCache(store Store, ttl, lockTTL time.Duration, logger ectologger.Logger) *ReportCache {
	return &ReportCache{
		store:   store,
		locker:  NewLocker(store, reportKeyPrefix+"lock:", logger),
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func reportKey(fingerprint string) string {
	return reportKeyPrefix + fingerprint
}

// Get returns the cached report for a fingerprint
func (c *ReportCache) Get(ctx context.Context, fingerprint string) (*models.Report, bool, error) {
	raw, err := c.store.Get(ctx, reportKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report models.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &report, true, nil
}

// Set stores a report under its fingerprint
func (c *ReportCache) Set(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, reportKey(report.Fingerprint), data, c.ttl).Err()
}

// GetOrCompute returns the cached report for fingerprint or computes and caches it.
// Concurrent callers with the same fingerprint wait on one lock so the report is computed once.
// When Redis cannot be reached the report is computed without the cache.
func (c *ReportCache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) (*models.Report, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "cache.ReportCache.GetOrCompute")
	defer span.End()

	log := c.logger.WithContext(ctx).WithField("fingerprint", fingerprint)

	report, ok, err := c.Get(ctx, fingerprint)
	if err != nil {
		log.WithError(err).Warn("Report cache unavailable, computing without it")
		return c.compute(ctx, span, compute, log, false)
	}
	if ok {
		return report, true, nil
	}

	lock, err := c.locker.TryAcquire(ctx, fingerprint, c.lockTTL, c.lockTTL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		log.WithError(err).Warn("Failed to take report lock, computing without it")
		return c.compute(ctx, span, compute, log, errors.Is(err, ErrLockNotAcquired))
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.WithError(err).Warn("Failed to release report lock")
		}
	}()

	// another caller may have finished while we waited for the lock
	if report, ok, err := c.Get(ctx, fingerprint); err == nil && ok {
		return report, true, nil
	}
	return c.compute(ctx, span, compute, log, true)
}

func (c *ReportCache) compute(ctx context.Context, span trace.Span, compute ComputeFunc, log ectologger.Logger, store bool) (*models.Report, bool, error) {
	report, err := compute(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, false, err
	}
	if !store {
		return report, false, nil
	}
	if err := c.Set(ctx, report); err != nil {
		log.WithError(err).Warn("Failed to cache report")
	}
	return report, false, nil
}
