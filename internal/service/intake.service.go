package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/repo"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// Submission is a checkout form as posted by the buyer.
type Submission struct {
	Amount          string            `json:"amount"`
	Currency        string            `json:"currency"`
	Email           string            `json:"email"`
	Purchaser       map[string]any    `json:"purchaser_info"`
	Cart            []json.RawMessage `json:"cart"`
	AntiReplayToken string            `json:"anti_replay_token"`
}

type IntakeService struct {
	ledger   repo.OrderLedger
	tokens   TokenVerifier
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewIntakeService(ledger repo.OrderLedger, tokens TokenVerifier, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		ledger:   ledger,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Intake checks the submission and records a pending order. Nothing is
// persisted when a check fails.
func (s *IntakeService) Intake(ctx context.Context, sub Submission) (uuid.UUID, error) {
	if err := s.tokens.Verify(ctx, sub.AntiReplayToken); err != nil {
		return uuid.Nil, err
	}

	email := strings.TrimSpace(sub.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return uuid.Nil, domain.Validation("email", "a valid email address is required")
	}

	amount, err := domain.ParseMoney(sub.Amount, sub.Currency)
	if err != nil {
		return uuid.Nil, err
	}

	order := domain.NewPendingOrder(amount, email, sub.Purchaser, sub.Cart, s.now().UTC())
	id, err := s.ledger.CreatePending(ctx, order)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record pending order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", id.String()),
		zap.Stringer("amount", amount))
	return id, nil
}
