package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	pkgcache "FinAlloc/pkg/cache"
)

// CachedForecasts stores predictor outputs in a pkg/cache backend. Keys are
// the model fingerprint plus a SHA-256 of the exact window bits, so a new
// model or a changed window never reuses a stale value.
type CachedForecasts struct {
	c   pkgcache.Service
	ttl time.Duration
}

var _ domrepo.ForecastCache = (*CachedForecasts)(nil)

func NewCachedForecasts(c pkgcache.Service, ttl time.Duration) *CachedForecasts {
	return &CachedForecasts{c: c, ttl: ttl}
}

func (f *CachedForecasts) Get(ctx context.Context, fingerprint string, window models.PriceWindow) (float64, bool, error) {
	b, err := f.c.Get(ctx, forecastKey(fingerprint, window))
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("forecast cache get: %w", err)
	}
	if len(b) != 8 {
		return 0, false, fmt.Errorf("forecast cache: corrupt value of %d bytes", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), true, nil
}

func (f *CachedForecasts) Set(ctx context.Context, fingerprint string, window models.PriceWindow, value float64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(value))
	if err := f.c.Set(ctx, forecastKey(fingerprint, window), b, f.ttl); err != nil {
		return fmt.Errorf("forecast cache set: %w", err)
	}
	return nil
}

func forecastKey(fingerprint string, window models.PriceWindow) string {
	buf := make([]byte, 8*len(window))
	for i, v := range window {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return pkgcache.GenerateKeyWithParams("forecast", fingerprint, pkgcache.HashBytes(buf))
}
