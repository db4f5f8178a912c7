package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	domsvc "FinAlloc/internal/domain/service"
	applogger "FinAlloc/pkg/logger"
)

// ForecasterOption configures ReturnForecaster.
type ForecasterOption func(*ForecasterConfig)

// ForecasterConfig holds worker pool and cache settings.
type ForecasterConfig struct {
	Workers int
	Cache   domrepo.ForecastCache
	Logger  *applogger.Logger
	Metrics domrepo.Metrics
}

// WithWorkers bounds the number of concurrent predictions.
func WithWorkers(n int) ForecasterOption {
	return func(c *ForecasterConfig) {
		c.Workers = n
	}
}

// WithForecastCache enables memoization of predictions.
func WithForecastCache(cache domrepo.ForecastCache) ForecasterOption {
	return func(c *ForecasterConfig) {
		c.Cache = cache
	}
}

// WithForecasterLogger sets the logger.
func WithForecasterLogger(l *applogger.Logger) ForecasterOption {
	return func(c *ForecasterConfig) {
		c.Logger = l
	}
}

// WithForecasterMetrics sets the metrics recorder.
func WithForecasterMetrics(m domrepo.Metrics) ForecasterOption {
	return func(c *ForecasterConfig) {
		c.Metrics = m
	}
}

// ReturnForecaster runs the predictor over every asset of a class.
type ReturnForecaster struct {
	model domsvc.SequencePredictor
	cfg   ForecasterConfig
}

var _ domsvc.ReturnForecaster = (*ReturnForecaster)(nil)

func NewReturnForecaster(model domsvc.SequencePredictor, opts ...ForecasterOption) *ReturnForecaster {
	cfg := ForecasterConfig{
		Workers: runtime.NumCPU(),
		Logger:  applogger.Nop(),
		Metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &ReturnForecaster{model: model, cfg: cfg}
}

// Forecast predicts a return for every asset. The result has the same order
// as assets regardless of which worker finishes first. The first failure
// cancels the remaining work and fails the whole call.
func (f *ReturnForecaster) Forecast(ctx context.Context, assets []models.Asset) (models.Forecasts, error) {
	out := make(models.Forecasts, len(assets))
	if len(assets) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	jobs := make(chan int)
	for w := 0; w < min(f.cfg.Workers, len(assets)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				a := assets[i]
				v, err := f.predict(ctx, a)
				if err != nil {
					fail(fmt.Errorf("forecast %s: %w", a.Symbol, err))
					continue
				}
				out[i] = models.Forecast{Symbol: a.Symbol, PredictedReturn: v}
			}
		}()
	}

feed:
	for i := range assets {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *ReturnForecaster) predict(ctx context.Context, a models.Asset) (float64, error) {
	fp := f.model.Fingerprint()
	if f.cfg.Cache != nil {
		v, ok, err := f.cfg.Cache.Get(ctx, fp, a.Window)
		if err != nil {
			f.cfg.Logger.Warn("forecast cache get failed",
				applogger.String("symbol", a.Symbol),
				applogger.Error(err),
			)
		} else if ok {
			f.cfg.Metrics.RecordForecast(string(a.Class), true)
			return v, nil
		}
	}

	v, err := f.model.Predict(a.Window)
	if err != nil {
		return 0, err
	}
	f.cfg.Metrics.RecordForecast(string(a.Class), false)

	if f.cfg.Cache != nil {
		if err := f.cfg.Cache.Set(ctx, fp, a.Window, v); err != nil {
			f.cfg.Logger.Warn("forecast cache set failed",
				applogger.String("symbol", a.Symbol),
				applogger.Error(err),
			)
		}
	}
	return v, nil
}
