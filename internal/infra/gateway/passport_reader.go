package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

var tracer = otel.Tracer("gateway")

// Source is the upstream passport data service.
type Source interface {
	GetPassport(ctx context.Context, address string) (*scorer.PassportData, error)
}

// Cache is the subset of the memcache client used by the reader.
type Cache interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// PassportReader reads passport data from the source, caching hits in memcached.
type PassportReader struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ usecase.PassportReader = (*PassportReader)(nil)

// NewPassportReader builds a reader. cache may be nil to disable caching.
func NewPassportReader(source Source, cache Cache, ttl time.Duration, logger *slog.Logger) *PassportReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PassportReader{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// NewPassportReaderWithMemcache takes the concrete client so a nil *memcache.Client
// becomes a nil Cache instead of a non-nil interface holding nil.
func NewPassportReaderWithMemcache(source Source, mc *memcache.Client, ttl time.Duration, logger *slog.Logger) *PassportReader {
	if mc == nil {
		return NewPassportReader(source, nil, ttl, logger)
	}
	return NewPassportReader(source, mc, ttl, logger)
}

func cacheKey(address string) string {
	return "passport:" + strconv.FormatUint(xxh3.HashString(scorer.NormalizeAddress(address)), 16)
}

func (r *PassportReader) GetPassport(ctx context.Context, address string) (*scorer.PassportData, error) {
	ctx, span := tracer.Start(ctx, "PassportReader.GetPassport")
	defer span.End()

	key := cacheKey(address)

	if r.cache != nil {
		item, err := r.cache.Get(key)
		if err == nil {
			var data scorer.PassportData
			if err := json.Unmarshal(item.Value, &data); err == nil {
				return &data, nil
			}
			r.logger.WarnContext(ctx, "discarding undecodable cached passport", "address", address)
		} else if !errors.Is(err, memcache.ErrCacheMiss) {
			r.logger.WarnContext(ctx, "passport cache lookup failed", "address", address, "error", err)
		}
	}

	data, err := r.source.GetPassport(ctx, address)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "fetch passport")
	}
	if data == nil {
		return nil, nil
	}

	if r.cache != nil && r.ttl > 0 {
		value, err := json.Marshal(data)
		if err == nil {
			err = r.cache.Set(&memcache.Item{
				Key:        key,
				Value:      value,
				Expiration: int32(r.ttl.Seconds()),
			})
		}
		if err != nil {
			r.logger.WarnContext(ctx, "failed to cache passport", "address", address, "error", err)
		}
	}

	return data, nil
}
