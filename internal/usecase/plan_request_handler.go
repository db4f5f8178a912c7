package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	pkgkafka "FinAlloc/pkg/kafka"
	applogger "FinAlloc/pkg/logger"
)

// Planner computes a plan. *AllocationPipeline implements it.
type Planner interface {
	Run(ctx context.Context, amount float64, profile models.RiskProfile) (*models.InvestmentPlan, error)
}

var (
	_ Planner                 = (*AllocationPipeline)(nil)
	_ pkgkafka.MessageHandler = (*PlanRequestHandler)(nil)
)

// PlanRequestHandler serves plan requests arriving on Kafka. Accepted requests
// are published by the pipeline; rejected ones are answered here so the caller
// always gets a result for its request id.
type PlanRequestHandler struct {
	topic     string
	planner   Planner
	publisher domrepo.PlanPublisher
	log       *applogger.Logger
	metrics   domrepo.Metrics
}

func NewPlanRequestHandler(topic string, planner Planner, publisher domrepo.PlanPublisher, l *applogger.Logger, m domrepo.Metrics) *PlanRequestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &PlanRequestHandler{topic: topic, planner: planner, publisher: publisher, log: l, metrics: m}
}

func (h *PlanRequestHandler) Topic() string { return h.topic }

// incoming message schema: {request_id, amount, risk_profile}
func (h *PlanRequestHandler) Handle(ctx context.Context, b []byte) error {
	var msg models.PlanRequestMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(pkgkafka.CodeValidation, fmt.Errorf("decode plan request: %w", err))
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.NewString()
	}

	req := models.InvestRequest{Amount: msg.Amount, RiskProfile: msg.RiskProfile}
	profile, err := PrepareInvestRequest(ctx, &req)
	if err != nil {
		h.metrics.RecordError("request_invalid")
		h.reject(ctx, msg.RequestID, err)
		return pkgkafka.Permanent(pkgkafka.CodeValidation, err)
	}

	if _, err := h.planner.Run(WithRequestID(ctx, msg.RequestID), req.Amount, profile); err != nil {
		return fmt.Errorf("plan request %s: %w", msg.RequestID, err)
	}
	return nil
}

func (h *PlanRequestHandler) reject(ctx context.Context, requestID string, cause error) {
	h.log.Warn("plan request rejected",
		applogger.String("request_id", requestID),
		applogger.Error(cause),
	)
	if h.publisher == nil {
		return
	}
	err := h.publisher.PublishPlan(ctx, requestID, models.PlanResultMessage{RequestID: requestID, Error: cause.Error()})
	if err != nil {
		h.metrics.RecordError("plan_publish")
		h.log.Warn("plan rejection publish failed", applogger.String("request_id", requestID), applogger.Error(err))
	}
}
