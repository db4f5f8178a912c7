package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlloc/internal/domain/models"
	"FinAlloc/internal/services/portfolio"
	xhttp "FinAlloc/pkg/http"
	xlogger "FinAlloc/pkg/logger"
)

type fakeStreamer struct {
	mu       sync.Mutex
	plan     *models.InvestmentPlan
	err      error
	outcomes []models.ClassOutcome
	amount   float64
	profile  models.RiskProfile
}

func (f *fakeStreamer) Stream(_ context.Context, amount float64, profile models.RiskProfile, emit func(models.ClassOutcome)) (*models.InvestmentPlan, error) {
	f.mu.Lock()
	f.amount, f.profile = amount, profile
	f.mu.Unlock()
	if emit != nil {
		for _, o := range f.outcomes {
			emit(o)
		}
	}
	return f.plan, f.err
}

func (f *fakeStreamer) Table() portfolio.Table      { return portfolio.DefaultTable() }
func (f *fakeStreamer) Rule() models.AllocationRule { return models.RuleExpTilt }

func samplePlan() *models.InvestmentPlan {
	stocks := models.AllocationResult{
		Class:       models.Stocks,
		TotalAmount: 1750,
		Rule:        models.RuleExpTilt,
		PerAsset: []models.AssetAllocation{
			{Symbol: "B", Weight: 0.4368, Amount: 764.31},
			{Symbol: "A", Weight: 0.3236, Amount: 566.22},
			{Symbol: "C", Weight: 0.2397, Amount: 419.47},
		},
	}
	return &models.InvestmentPlan{
		ID:          uuid.New(),
		Amount:      5000,
		RiskProfile: models.Balanced,
		Allocations: map[models.AssetClass]models.AllocationResult{models.Stocks: stocks},
		Errors:      map[models.AssetClass]string{models.Crypto: "insufficient data"},
	}
}

func newTestEcho(s PlanStreamer) *echo.Echo {
	e := echo.New()
	NewInvestHandler(xlogger.Nop(), s).RegisterRoutes(e)
	return e
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestInvest_ReturnsPlan(t *testing.T) {
	fs := &fakeStreamer{plan: samplePlan()}
	rec := do(newTestEcho(fs), http.MethodPost, "/api/invest", `{"amount":5000,"risk_profile":"balanced"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got envelope[models.InvestResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5000.0, fs.amount)
	assert.Equal(t, models.Balanced, fs.profile)
	assert.Equal(t, "Balanced", got.Data.RiskProfile)
	assert.Equal(t, 1750.0, got.Data.Allocations["stocks"].Allocation)
	assert.Equal(t, 764.31, got.Data.Allocations["stocks"].TopAssets["B"])
	assert.Equal(t, "insufficient data", got.Data.Skipped["crypto"])
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestInvest_QueryParamsAndDefaultProfile(t *testing.T) {
	fs := &fakeStreamer{plan: samplePlan()}
	rec := do(newTestEcho(fs), http.MethodGet, "/api/invest?amount=250.5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 250.5, fs.amount)
	assert.Equal(t, models.Balanced, fs.profile)
}

func TestInvest_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"missing amount", `{"risk_profile":"Balanced"}`, "ERR_REQUIRED", "Amount"},
		{"negative amount", `{"amount":-1}`, "ERR_GT", "Amount"},
		{"unknown profile", `{"amount":10,"risk_profile":"Reckless"}`, "ERR_ONEOF", "RiskProfile"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := &fakeStreamer{plan: samplePlan()}
			rec := do(newTestEcho(fs), http.MethodPost, "/api/invest", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var got envelope[[]xhttp.ValidationError]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.NotEmpty(t, got.Data)
			assert.Equal(t, tc.code, got.Data[0].Code)
			assert.Equal(t, tc.field, got.Data[0].Field)
			assert.Zero(t, fs.amount, "pipeline must not run")
		})
	}
}

func TestInvest_NothingAllocated(t *testing.T) {
	plan := samplePlan()
	plan.Allocations = map[models.AssetClass]models.AllocationResult{}
	rec := do(newTestEcho(&fakeStreamer{plan: plan}), http.MethodPost, "/api/invest", `{"amount":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNPROCESSABLE")
}

func TestInvest_PipelineErrors(t *testing.T) {
	rec := do(newTestEcho(&fakeStreamer{err: models.ErrInvalidAmount}), http.MethodPost, "/api/invest", `{"amount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INVALID_AMOUNT")

	rec = do(newTestEcho(&fakeStreamer{err: errors.New("boom")}), http.MethodPost, "/api/invest", `{"amount":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfiles(t *testing.T) {
	rec := do(newTestEcho(&fakeStreamer{}), http.MethodGet, "/api/profiles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got envelope[struct {
		Rule     string        `json:"rule"`
		Profiles []profileView `json:"profiles"`
	}]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "exp_tilt", got.Data.Rule)
	require.Len(t, got.Data.Profiles, 3)
	assert.Equal(t, "Conservative", got.Data.Profiles[0].Profile)
	assert.Equal(t, 0.35, got.Data.Profiles[0].Fractions["bonds"])
}

func TestHealth(t *testing.T) {
	rec := do(newTestEcho(&fakeStreamer{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamInvest(t *testing.T) {
	plan := samplePlan()
	stocks := plan.Allocations[models.Stocks]
	fs := &fakeStreamer{
		plan: plan,
		outcomes: []models.ClassOutcome{
			{Class: models.Stocks, Result: &stocks},
			{Class: models.Crypto, Err: models.ErrInsufficientData},
		},
	}
	srv := httptest.NewServer(newTestEcho(fs))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/invest?amount=5000&risk_profile=Aggressive"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var frames []StreamFrame
	for {
		var f StreamFrame
		if err := conn.ReadJSON(&f); err != nil {
			break
		}
		frames = append(frames, f)
	}
	require.Len(t, frames, 3)
	assert.Equal(t, "class", frames[0].Type)
	assert.Equal(t, "stocks", frames[0].Class)
	require.NotNil(t, frames[0].Allocation)
	assert.Equal(t, 566.22, frames[0].Allocation.TopAssets["A"])
	assert.Equal(t, "crypto", frames[1].Class)
	assert.Equal(t, models.ErrInsufficientData.Error(), frames[1].Error)
	assert.Equal(t, "plan", frames[2].Type)
	require.NotNil(t, frames[2].Plan)
	assert.Equal(t, plan.ID.String(), frames[2].Plan.PlanID)

	fs.mu.Lock()
	assert.Equal(t, models.Aggressive, fs.profile)
	fs.mu.Unlock()
}

func TestStreamInvest_RejectsBeforeUpgrade(t *testing.T) {
	rec := do(newTestEcho(&fakeStreamer{}), http.MethodGet, "/ws/invest?amount=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
