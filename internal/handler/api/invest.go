package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinAlloc/internal/domain/models"
	"FinAlloc/internal/services/portfolio"
	"FinAlloc/internal/usecase"
	xhttp "FinAlloc/pkg/http"
	xlogger "FinAlloc/pkg/logger"
)

// PlanStreamer is the part of the allocation pipeline the handlers use.
type PlanStreamer interface {
	Stream(ctx context.Context, amount float64, profile models.RiskProfile, emit func(models.ClassOutcome)) (*models.InvestmentPlan, error)
	Table() portfolio.Table
	Rule() models.AllocationRule
}

var (
	_ PlanStreamer  = (*usecase.AllocationPipeline)(nil)
	_ xhttp.Handler = (*InvestHandler)(nil)
)

const headerRequestID = "X-Request-ID"

// InvestHandler serves investment plans over HTTP and websocket.
type InvestHandler struct {
	logger   *xlogger.Logger
	pipeline PlanStreamer
	upgrader websocket.Upgrader
}

func NewInvestHandler(logger *xlogger.Logger, pipeline PlanStreamer) *InvestHandler {
	return &InvestHandler{
		logger:   logger,
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *InvestHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/invest", h.Invest)
	g.GET("/invest", h.Invest)
	g.GET("/profiles", h.Profiles)
	e.GET("/ws/invest", h.StreamInvest)
	e.GET("/healthz", h.Health)
}

// Invest computes a plan from {amount, risk_profile}, sent as JSON or query params.
func (h *InvestHandler) Invest(c echo.Context) error {
	req := &models.InvestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	profile, err := models.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	ctx := usecase.WithRequestID(c.Request().Context(), requestID(c))
	plan, err := h.pipeline.Stream(ctx, req.Amount, profile, nil)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.toAppError(err))
	}
	if len(plan.Allocations) == 0 {
		appErr := xhttp.UnprocessableError("no asset class could be allocated")
		appErr.Params = map[string]interface{}{"skipped": models.NewInvestResponse(plan).Skipped}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, models.NewInvestResponse(plan))
}

type profileView struct {
	Profile   string             `json:"profile"`
	Fractions map[string]float64 `json:"fractions"`
}

// Profiles lists the allocation table and the in-class rule.
func (h *InvestHandler) Profiles(c echo.Context) error {
	table := h.pipeline.Table()
	out := make([]profileView, 0, len(table))
	for _, p := range models.AllRiskProfiles() {
		row := make(map[string]float64, len(table[p]))
		for cls, f := range table[p] {
			row[string(cls)] = f
		}
		out = append(out, profileView{Profile: p.String(), Fractions: row})
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"rule":     h.pipeline.Rule(),
		"profiles": out,
	})
}

// Health reports liveness.
func (h *InvestHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// StreamFrame is one websocket message of /ws/invest.
type StreamFrame struct {
	Type       string                      `json:"type"` // class, plan or error
	Class      string                      `json:"class,omitempty"`
	Allocation *models.ClassAllocationView `json:"allocation,omitempty"`
	Error      string                      `json:"error,omitempty"`
	Plan       *models.InvestResponse      `json:"plan,omitempty"`
}

// StreamInvest upgrades to a websocket and sends one frame per class as soon
// as it is allocated, then the full plan.
func (h *InvestHandler) StreamInvest(c echo.Context) error {
	req := &models.InvestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	profile, err := models.ParseRiskProfile(req.RiskProfile)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(usecase.WithRequestID(c.Request().Context(), requestID(c)))
	defer cancel()
	go func() {
		// a read error means the client went away
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	write := func(f StreamFrame) {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(f); err != nil {
			h.logger.Debug("websocket write failed", xlogger.Error(err))
			cancel()
		}
	}

	plan, err := h.pipeline.Stream(ctx, req.Amount, profile, func(o models.ClassOutcome) {
		f := StreamFrame{Type: "class", Class: string(o.Class)}
		if o.Err != nil {
			f.Error = o.Err.Error()
		} else if o.Result != nil {
			f.Allocation = &models.ClassAllocationView{Allocation: o.Result.TotalAmount, TopAssets: o.Result.Amounts()}
		}
		write(f)
	})
	if err != nil {
		write(StreamFrame{Type: "error", Error: err.Error()})
	} else {
		resp := models.NewInvestResponse(plan)
		write(StreamFrame{Type: "plan", Plan: &resp})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return nil
}

func (h *InvestHandler) toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		return xhttp.NewAppError("ERR_INVALID_AMOUNT", "amount", err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidRiskProfile):
		return xhttp.NewAppError("ERR_INVALID_RISK_PROFILE", "risk_profile", err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("invest usecase error", xlogger.Error(err))
		return xhttp.InternalError("plan computation failed").WithError(err)
	}
}

func requestID(c echo.Context) string {
	if id := c.Request().Header.Get(headerRequestID); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Response().Header().Set(headerRequestID, id)
	return id
}
