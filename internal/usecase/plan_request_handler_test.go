package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"FinAlloc/internal/domain/models"
	pkgkafka "FinAlloc/pkg/kafka"
)

func withRequestID(id string) interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		got, ok := requestIDFrom(ctx)
		return ok && got == id
	})
}

func TestPlanRequestHandler_RunsPlan(t *testing.T) {
	planner := new(MockPlanner)
	pub := new(MockPlanPublisher)
	planner.On("Run", withRequestID("r-1"), 2500.0, models.Aggressive).Return(&models.InvestmentPlan{}, nil)

	h := NewPlanRequestHandler("plans.requests", planner, pub, nil, nil)
	assert.Equal(t, "plans.requests", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"request_id":"r-1","amount":2500,"risk_profile":"aggressive"}`))
	require.NoError(t, err)
	planner.AssertExpectations(t)
	pub.AssertNotCalled(t, "PublishPlan", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRequestHandler_DefaultsProfile(t *testing.T) {
	planner := new(MockPlanner)
	planner.On("Run", mock.Anything, 100.0, models.Balanced).Return(&models.InvestmentPlan{}, nil)

	h := NewPlanRequestHandler("plans.requests", planner, nil, nil, nil)
	require.NoError(t, h.Handle(context.Background(), []byte(`{"request_id":"r-2","amount":100}`)))
	planner.AssertExpectations(t)
}

func TestPlanRequestHandler_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"zero amount", `{"request_id":"r-3","amount":0,"risk_profile":"Balanced"}`, models.ErrInvalidAmount},
		{"negative amount", `{"request_id":"r-3","amount":-10}`, models.ErrInvalidAmount},
		{"unknown profile", `{"request_id":"r-3","amount":10,"risk_profile":"Reckless"}`, models.ErrInvalidRiskProfile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			planner := new(MockPlanner)
			pub := new(MockPlanPublisher)
			pub.On("PublishPlan", mock.Anything, "r-3", mock.MatchedBy(func(m models.PlanResultMessage) bool {
				return m.RequestID == "r-3" && m.Plan == nil && m.Error != ""
			})).Return(nil).Once()

			h := NewPlanRequestHandler("plans.requests", planner, pub, nil, nil)
			err := h.Handle(context.Background(), []byte(tc.payload))
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, pkgkafka.IsPermanent(err))
			pub.AssertExpectations(t)
			planner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPlanRequestHandler_MalformedJSON(t *testing.T) {
	planner := new(MockPlanner)
	pub := new(MockPlanPublisher)
	h := NewPlanRequestHandler("plans.requests", planner, pub, nil, nil)

	err := h.Handle(context.Background(), []byte(`{not json`))
	assert.True(t, pkgkafka.IsPermanent(err))
	pub.AssertNotCalled(t, "PublishPlan", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRequestHandler_PlannerErrorIsRetryable(t *testing.T) {
	planner := new(MockPlanner)
	planner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("history offline"))

	h := NewPlanRequestHandler("plans.requests", planner, nil, nil, nil)
	err := h.Handle(context.Background(), []byte(`{"request_id":"r-4","amount":10,"risk_profile":"Conservative"}`))
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
	assert.Contains(t, err.Error(), "r-4")
}

func TestPrepareInvestRequest(t *testing.T) {
	req := models.InvestRequest{Amount: 42}
	p, err := PrepareInvestRequest(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, models.Balanced, p)
	assert.Equal(t, "Balanced", req.RiskProfile)

	req = models.InvestRequest{Amount: 42, RiskProfile: "CONSERVATIVE"}
	p, err = PrepareInvestRequest(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, models.Conservative, p)
}
