package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	domsvc "FinAlloc/internal/domain/service"
	"FinAlloc/internal/services/portfolio"
	applogger "FinAlloc/pkg/logger"
)

// PipelineOption configures AllocationPipeline.
type PipelineOption func(*PipelineConfig)

// PipelineConfig holds allocation settings.
type PipelineConfig struct {
	TopN          int
	Amplification float64
	Rule          models.AllocationRule
	Window        int
	Classes       []models.AssetClass
	Publisher     domrepo.PlanPublisher
	Logger        *applogger.Logger
	Metrics       domrepo.Metrics
}

// WithTopN sets how many assets per class receive money.
func WithTopN(n int) PipelineOption {
	return func(c *PipelineConfig) {
		c.TopN = n
	}
}

// WithAmplification sets the exponent scale of the return tilt.
func WithAmplification(k float64) PipelineOption {
	return func(c *PipelineConfig) {
		c.Amplification = k
	}
}

// WithRule selects the in-class allocation rule.
func WithRule(rule models.AllocationRule) PipelineOption {
	return func(c *PipelineConfig) {
		c.Rule = rule
	}
}

// WithWindow sets the number of trailing closes requested per asset.
func WithWindow(n int) PipelineOption {
	return func(c *PipelineConfig) {
		c.Window = n
	}
}

// WithClasses restricts the classes considered.
func WithClasses(classes ...models.AssetClass) PipelineOption {
	return func(c *PipelineConfig) {
		c.Classes = classes
	}
}

// WithPlanPublisher announces every finished plan.
func WithPlanPublisher(p domrepo.PlanPublisher) PipelineOption {
	return func(c *PipelineConfig) {
		c.Publisher = p
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(c *PipelineConfig) {
		c.Logger = l
	}
}

// WithPipelineMetrics sets the metrics recorder.
func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(c *PipelineConfig) {
		c.Metrics = m
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so the published plan carries the caller's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// AllocationPipeline turns an amount and risk profile into an investment plan.
// Classes are computed concurrently and fail independently.
type AllocationPipeline struct {
	history    domrepo.PriceHistory
	forecaster domsvc.ReturnForecaster
	table      portfolio.Table
	stabilizer *portfolio.CovarianceStabilizer
	optimizer  *portfolio.Optimizer
	cfg        PipelineConfig
}

func NewAllocationPipeline(history domrepo.PriceHistory, forecaster domsvc.ReturnForecaster, table portfolio.Table, opts ...PipelineOption) (*AllocationPipeline, error) {
	cfg := PipelineConfig{
		TopN:          portfolio.DefaultTopN,
		Amplification: portfolio.DefaultAmplification,
		Rule:          models.RuleExpTilt,
		Window:        models.DefaultWindow,
		Classes:       models.AllAssetClasses(),
		Logger:        applogger.Nop(),
		Metrics:       nopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rule != models.RuleExpTilt && cfg.Rule != models.RuleMarkowitz {
		return nil, fmt.Errorf("unknown allocation rule %q", cfg.Rule)
	}
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("top n must be positive, got %d", cfg.TopN)
	}
	if cfg.Window < 2 {
		return nil, fmt.Errorf("window must be at least 2, got %d", cfg.Window)
	}
	return &AllocationPipeline{
		history:    history,
		forecaster: forecaster,
		table:      table,
		stabilizer: portfolio.NewCovarianceStabilizer(),
		optimizer:  portfolio.NewOptimizer(),
		cfg:        cfg,
	}, nil
}

// Table returns the allocation policy in use.
func (p *AllocationPipeline) Table() portfolio.Table { return p.table }

// Rule returns the configured in-class allocation rule.
func (p *AllocationPipeline) Rule() models.AllocationRule { return p.cfg.Rule }

// Run computes a full plan.
func (p *AllocationPipeline) Run(ctx context.Context, amount float64, profile models.RiskProfile) (*models.InvestmentPlan, error) {
	return p.Stream(ctx, amount, profile, nil)
}

// Stream computes a plan and calls emit once per class as soon as it finishes.
// emit is called from a single goroutine.
func (p *AllocationPipeline) Stream(ctx context.Context, amount float64, profile models.RiskProfile, emit func(models.ClassOutcome)) (*models.InvestmentPlan, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, fmt.Errorf("%w: got %v", models.ErrInvalidAmount, amount)
	}
	if !profile.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidRiskProfile, profile)
	}

	start := time.Now()
	plan := &models.InvestmentPlan{
		ID:          uuid.New(),
		Amount:      decimal.NewFromFloat(amount).Round(2).InexactFloat64(),
		RiskProfile: profile,
		CreatedAt:   start.UTC(),
		Allocations: make(map[models.AssetClass]models.AllocationResult, len(p.cfg.Classes)),
		Errors:      map[models.AssetClass]string{},
	}

	type item struct {
		class models.AssetClass
		res   *models.AllocationResult
		err   error
	}
	ch := make(chan item, len(p.cfg.Classes))
	var wg sync.WaitGroup
	for _, cls := range p.cfg.Classes {
		wg.Add(1)
		go func(cls models.AssetClass) {
			defer wg.Done()
			res, err := p.allocateClass(ctx, cls, amount, profile)
			ch <- item{cls, res, err}
		}(cls)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if emit != nil {
			emit(models.ClassOutcome{Class: it.class, Result: it.res, Err: it.err})
		}
		if it.err != nil {
			plan.Errors[it.class] = it.err.Error()
			p.cfg.Metrics.RecordError(errorKind(it.err))
			p.cfg.Logger.Warn("class skipped",
				applogger.String("class", string(it.class)),
				applogger.String("profile", profile.String()),
				applogger.Error(it.err),
			)
			continue
		}
		if it.res != nil {
			plan.Allocations[it.class] = *it.res
		}
	}
	if len(plan.Errors) == 0 {
		plan.Errors = nil
	}

	status := "ok"
	switch {
	case len(plan.Allocations) == 0:
		status = "empty"
	case plan.Errors != nil:
		status = "partial"
	}
	p.cfg.Metrics.RecordPlan(profile.String(), status)
	p.cfg.Metrics.RecordLatency("plan", time.Since(start).Seconds())
	p.cfg.Logger.Info("plan computed",
		applogger.String("plan_id", plan.ID.String()),
		applogger.String("profile", profile.String()),
		applogger.Float64("amount", plan.Amount),
		applogger.Int("classes", len(plan.Allocations)),
		applogger.Int("skipped", len(plan.Errors)),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	p.publish(ctx, plan)
	return plan, nil
}

func (p *AllocationPipeline) publish(ctx context.Context, plan *models.InvestmentPlan) {
	if p.cfg.Publisher == nil {
		return
	}
	key, ok := requestIDFrom(ctx)
	if !ok {
		key = plan.ID.String()
	}
	resp := models.NewInvestResponse(plan)
	if err := p.cfg.Publisher.PublishPlan(ctx, key, models.PlanResultMessage{RequestID: key, Plan: &resp}); err != nil {
		p.cfg.Metrics.RecordError("plan_publish")
		p.cfg.Logger.Warn("plan publish failed",
			applogger.String("plan_id", plan.ID.String()),
			applogger.Error(err),
		)
	}
}

func (p *AllocationPipeline) allocateClass(ctx context.Context, class models.AssetClass, amount float64, profile models.RiskProfile) (*models.AllocationResult, error) {
	start := time.Now()
	defer func() {
		p.cfg.Metrics.RecordLatency("class_"+string(class), time.Since(start).Seconds())
	}()

	total, err := p.table.ClassAmount(amount, profile, class)
	if err != nil {
		return nil, err
	}

	assets, err := p.history.LoadClass(ctx, class, p.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("load %s history: %w", class, err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no assets with %d closes in %s", models.ErrInsufficientData, p.cfg.Window, class)
	}

	forecasts, err := p.forecaster.Forecast(ctx, assets)
	if err != nil {
		return nil, err
	}
	if len(forecasts) == 0 {
		return nil, fmt.Errorf("%w: no forecasts for %s", models.ErrInsufficientData, class)
	}

	res := &models.AllocationResult{Class: class, TotalAmount: total}
	if len(forecasts) == 1 {
		f := forecasts[0]
		res.Rule = models.RuleSingle
		res.PerAsset = []models.AssetAllocation{{
			Symbol:          f.Symbol,
			PredictedReturn: f.PredictedReturn,
			Weight:          1,
			Amount:          total,
		}}
		p.cfg.Metrics.RecordClassOutcome(string(class), string(res.Rule))
		return res, nil
	}

	cov, covErr := p.stabilizer.Stabilize(assets)
	if covErr != nil {
		p.cfg.Metrics.RecordFallback(string(class), "covariance")
		p.cfg.Logger.Warn("covariance unavailable",
			applogger.String("class", string(class)),
			applogger.Error(covErr),
		)
	}

	top := portfolio.SelectTop(forecasts, p.cfg.TopN)
	var sub *mat.SymDense
	if cov != nil {
		sub = portfolio.SubCovariance(cov, indexOf(assets, top))
	}

	var allocs []models.AssetAllocation
	switch p.cfg.Rule {
	case models.RuleMarkowitz:
		weights, rule, err := p.markowitz(class, top, sub, profile)
		if err != nil {
			return nil, err
		}
		res.Rule = rule
		allocs = portfolio.Apply(top, weights, total)
	default:
		res.Rule = models.RuleExpTilt
		allocs = portfolio.Weight(top, total, p.cfg.Amplification)
	}

	if sub != nil {
		w := make([]float64, len(allocs))
		for i, a := range allocs {
			w[i] = a.Weight
		}
		vol := portfolio.Volatility(w, sub)
		res.Volatility = &vol
	}
	res.PerAsset = portfolio.RoundToCents(allocs, total)
	p.cfg.Metrics.RecordClassOutcome(string(class), string(res.Rule))
	return res, nil
}

// markowitz falls back to equal weights when no covariance is available or
// every optimized weight clamps to zero.
func (p *AllocationPipeline) markowitz(class models.AssetClass, top models.Forecasts, cov *mat.SymDense, profile models.RiskProfile) ([]float64, models.AllocationRule, error) {
	if cov == nil {
		return portfolio.EqualWeights(len(top)), models.RuleEqual, nil
	}
	w, err := p.optimizer.Optimize(top.Returns(), cov, profile)
	if errors.Is(err, models.ErrDegenerateInput) {
		p.cfg.Metrics.RecordFallback(string(class), "degenerate")
		p.cfg.Logger.Warn("optimizer degenerate, using equal weights",
			applogger.String("class", string(class)),
			applogger.Strings("symbols", top.Symbols()),
		)
		return portfolio.EqualWeights(len(top)), models.RuleEqual, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("optimize %s: %w", class, err)
	}
	return w, models.RuleMarkowitz, nil
}

func indexOf(assets []models.Asset, top models.Forecasts) []int {
	pos := make(map[string]int, len(assets))
	for i, a := range assets {
		pos[a.Symbol] = i
	}
	idx := make([]int, len(top))
	for i, f := range top {
		idx[i] = pos[f.Symbol]
	}
	return idx
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrModelLoad):
		return "model"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "class_failed"
	}
}
