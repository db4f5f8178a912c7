package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"FinAlloc/internal/domain/models"
)

// MockPriceHistory is a mock implementation of PriceHistory for testing
type MockPriceHistory struct {
	mock.Mock
}

func (m *MockPriceHistory) LoadClass(ctx context.Context, class models.AssetClass, window int) ([]models.Asset, error) {
	args := m.Called(ctx, class, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Asset), args.Error(1)
}

func (m *MockPriceHistory) Close() error {
	return m.Called().Error(0)
}

// MockForecaster is a mock implementation of ReturnForecaster for testing
type MockForecaster struct {
	mock.Mock
}

func (m *MockForecaster) Forecast(ctx context.Context, assets []models.Asset) (models.Forecasts, error) {
	args := m.Called(ctx, assets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Forecasts), args.Error(1)
}

// MockPlanPublisher is a mock implementation of PlanPublisher for testing
type MockPlanPublisher struct {
	mock.Mock
}

func (m *MockPlanPublisher) PublishPlan(ctx context.Context, key string, msg models.PlanResultMessage) error {
	return m.Called(ctx, key, msg).Error(0)
}

func (m *MockPlanPublisher) Close() error {
	return m.Called().Error(0)
}

// MockPlanner is a mock implementation of Planner for testing
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Run(ctx context.Context, amount float64, profile models.RiskProfile) (*models.InvestmentPlan, error) {
	args := m.Called(ctx, amount, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvestmentPlan), args.Error(1)
}

func ofClass(class models.AssetClass) interface{} {
	return mock.MatchedBy(func(assets []models.Asset) bool {
		return len(assets) > 0 && assets[0].Class == class
	})
}

// makeAssets builds assets with distinct, deterministic return histories.
func makeAssets(class models.AssetClass, symbols ...string) []models.Asset {
	out := make([]models.Asset, len(symbols))
	for i, s := range symbols {
		rets := make([]float64, 20)
		win := make(models.PriceWindow, models.DefaultWindow)
		for t := range rets {
			rets[t] = 0.01 * float64((t*(i+2))%7-3)
		}
		for t := range win {
			win[t] = float64(t) / float64(len(win)-1)
		}
		out[i] = models.Asset{Symbol: s, Class: class, Window: win, Returns: rets}
	}
	return out
}
