package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
	"github.com/heraerp/hera-engine/pkg/repositories"
	"github.com/heraerp/hera-engine/pkg/smartcode"
)

// TransactionLineInput is one line of a transaction write payload.
type TransactionLineInput struct {
	LineType    string          `json:"line_type,omitempty"`
	EntityID    *uuid.UUID      `json:"entity_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	// LineAmount overrides quantity x unit_amount when set.
	LineAmount *decimal.Decimal `json:"line_amount,omitempty"`
	SmartCode  string           `json:"smart_code"`
}

// TransactionInput is the write payload for the transaction engine.
type TransactionInput struct {
	TransactionType string          `json:"transaction_type"`
	Code            string          `json:"transaction_code,omitempty"`
	Date            time.Time       `json:"transaction_date,omitempty"`
	SmartCode       string          `json:"smart_code"`
	SourceEntityID  *uuid.UUID      `json:"source_entity_id,omitempty"`
	TargetEntityID  *uuid.UUID      `json:"target_entity_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	// TotalAmount declares the header total. When nil the total is computed
	// from the lines.
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
	// ValidateBalance controls whether a declared total must equal the line
	// sum exactly. The check is on whenever a total is declared; set to
	// false to record a known discrepancy.
	ValidateBalance *bool `json:"validate_balance,omitempty"`
	// AutoPostLedger derives balanced GL lines and posts the transaction in
	// the same atomic write.
	AutoPostLedger bool                   `json:"auto_post_ledger,omitempty"`
	Lines          []TransactionLineInput `json:"lines"`
}

// TransactionService is the transaction engine: multi-line business events
// with the draft -> posted -> (voided | reversed) lifecycle.
type TransactionService interface {
	Create(ctx context.Context, orgID, actorID uuid.UUID, input TransactionInput) (*models.TransactionWithLines, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error)
	// PostToLedger appends derived, balanced debit/credit lines and moves the
	// transaction from draft to posted. It fails closed: an imbalance leaves
	// the transaction in draft with no new lines.
	PostToLedger(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error)
	// Void reverses a posted transaction by creating a mirror transaction
	// with negated lines. Posted transactions are never mutated in place.
	Void(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.TransactionWithLines, error)
}

type transactionService struct {
	store  TxStore
	repos  repositories.Repos
	logger *zap.Logger
}

// NewTransactionService creates the transaction engine over the given store.
func NewTransactionService(store TxStore, repos repositories.Repos, logger *zap.Logger) TransactionService {
	return &transactionService{store: store, repos: repos, logger: logger}
}

func (s *transactionService) Create(ctx context.Context, orgID, actorID uuid.UUID, input TransactionInput) (*models.TransactionWithLines, error) {
	if input.TransactionType == "" {
		return nil, apperrors.NewValidation("transaction_type", "must not be empty")
	}
	if err := smartcode.Validate(input.SmartCode); err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.NewValidation("lines", "a transaction needs at least one line")
	}

	for _, ref := range []*uuid.UUID{input.SourceEntityID, input.TargetEntityID} {
		if err := s.checkEntityRef(ctx, orgID, ref); err != nil {
			return nil, err
		}
	}

	// Assemble lines in memory first so validation failures write nothing.
	lines := make([]*models.TransactionLine, len(input.Lines))
	sum := decimal.Zero
	for i, in := range input.Lines {
		if err := smartcode.Validate(in.SmartCode); err != nil {
			return nil, err
		}
		if err := s.checkEntityRef(ctx, orgID, in.EntityID); err != nil {
			return nil, err
		}
		lineType := in.LineType
		if lineType == "" {
			lineType = "item"
		}
		quantity := in.Quantity
		if quantity.IsZero() {
			quantity = decimal.NewFromInt(1)
		}
		amount := quantity.Mul(in.UnitAmount)
		if in.LineAmount != nil {
			amount = *in.LineAmount
		}
		lines[i] = &models.TransactionLine{
			OrganizationID: orgID,
			LineNumber:     i + 1,
			LineType:       lineType,
			EntityID:       in.EntityID,
			Description:    in.Description,
			Quantity:       quantity,
			UnitAmount:     in.UnitAmount,
			LineAmount:     amount,
			SmartCode:      in.SmartCode,
		}
		sum = sum.Add(amount)
	}

	total := sum
	if input.TotalAmount != nil {
		validate := input.ValidateBalance == nil || *input.ValidateBalance
		if validate && !input.TotalAmount.Equal(sum) {
			return nil, &apperrors.ImbalanceError{Expected: *input.TotalAmount, Actual: sum}
		}
		total = *input.TotalAmount
	}

	code := input.Code
	if code == "" {
		code = generateTransactionCode(input.TransactionType)
	}

	header := &models.Transaction{
		OrganizationID:  orgID,
		TransactionType: input.TransactionType,
		Code:            code,
		Date:            input.Date,
		TotalAmount:     total,
		SmartCode:       input.SmartCode,
		SourceEntityID:  input.SourceEntityID,
		TargetEntityID:  input.TargetEntityID,
		Metadata:        input.Metadata,
		Status:          models.TxStatusDraft,
		CreatedBy:       actorRef(actorID),
	}

	err := s.store.WithinTx(ctx, func(r repositories.Repos) error {
		if err := r.Transactions.InsertHeader(ctx, header); err != nil {
			return err
		}
		for _, line := range lines {
			line.TransactionID = header.ID
			if err := r.Transactions.InsertLine(ctx, line); err != nil {
				return err
			}
		}
		if input.AutoPostLedger {
			return s.postLedgerLines(ctx, r, orgID, header, lines)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("organization_id", orgID.String()),
		zap.String("transaction_id", header.ID.String()),
		zap.String("transaction_code", header.Code),
		zap.String("total", header.TotalAmount.String()),
		zap.Bool("auto_posted", input.AutoPostLedger))

	return s.Get(ctx, orgID, header.ID)
}

func (s *transactionService) checkEntityRef(ctx context.Context, orgID uuid.UUID, ref *uuid.UUID) error {
	if ref == nil {
		return nil
	}
	entity, err := s.repos.Entities.FindAnyOrg(ctx, *ref)
	if err != nil {
		return err
	}
	if entity == nil {
		return apperrors.NewReferential("entity", *ref)
	}
	if entity.OrganizationID != orgID {
		return apperrors.NewCrossOrg("entity", *ref, orgID)
	}
	return nil
}

func (s *transactionService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error) {
	header, err := s.repos.Transactions.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.repos.Transactions.ListLines(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return &models.TransactionWithLines{Transaction: *header, Lines: lines}, nil
}

func (s *transactionService) List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	return s.repos.Transactions.List(ctx, orgID, filter)
}

func (s *transactionService) PostToLedger(ctx context.Context, orgID, id uuid.UUID) (*models.TransactionWithLines, error) {
	header, err := s.repos.Transactions.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if header.Status != models.TxStatusDraft {
		return nil, apperrors.NewValidation("transaction_status",
			fmt.Sprintf("only draft transactions can be posted, status is %q", header.Status))
	}
	lines, err := s.repos.Transactions.ListLines(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(r repositories.Repos) error {
		return s.postLedgerLines(ctx, r, orgID, header, businessLines(lines))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction posted",
		zap.String("organization_id", orgID.String()),
		zap.String("transaction_id", id.String()))
	return s.Get(ctx, orgID, id)
}

// postLedgerLines derives one debit per business line plus a single
// balancing credit, verifies the two sides cancel exactly, appends the GL
// lines and transitions the header to posted. Runs inside the caller's
// transaction so an imbalance rolls everything back.
func (s *transactionService) postLedgerLines(ctx context.Context, r repositories.Repos, orgID uuid.UUID, header *models.Transaction, lines []*models.TransactionLine) error {
	next, err := r.Transactions.NextLineNumber(ctx, orgID, header.ID)
	if err != nil {
		return err
	}

	debitTotal := decimal.Zero
	var glLines []*models.TransactionLine
	for _, line := range lines {
		glLines = append(glLines, &models.TransactionLine{
			TransactionID:  header.ID,
			OrganizationID: orgID,
			LineNumber:     next,
			LineType:       models.LineTypeDebit,
			EntityID:       line.EntityID,
			Description:    line.Description,
			Quantity:       decimal.NewFromInt(1),
			UnitAmount:     line.LineAmount,
			LineAmount:     line.LineAmount,
			SmartCode:      models.GLDebitSmartCode,
		})
		debitTotal = debitTotal.Add(line.LineAmount)
		next++
	}
	glLines = append(glLines, &models.TransactionLine{
		TransactionID:  header.ID,
		OrganizationID: orgID,
		LineNumber:     next,
		LineType:       models.LineTypeCredit,
		EntityID:       header.SourceEntityID,
		Description:    "GL balancing entry",
		Quantity:       decimal.NewFromInt(1),
		UnitAmount:     debitTotal,
		LineAmount:     debitTotal,
		SmartCode:      models.GLCreditSmartCode,
	})

	// A declared header total that disagrees with the debit side is an
	// imbalance. Returning before any insert leaves the transaction in
	// draft with no GL lines.
	if !header.TotalAmount.Equal(debitTotal) {
		return &apperrors.ImbalanceError{Expected: header.TotalAmount, Actual: debitTotal}
	}

	for _, line := range glLines {
		if err := r.Transactions.InsertLine(ctx, line); err != nil {
			return err
		}
	}
	return r.Transactions.UpdateStatus(ctx, orgID, header.ID, models.TxStatusDraft, models.TxStatusPosted)
}

// businessLines filters out previously derived GL lines so re-posting logic
// never double-derives.
func businessLines(lines []*models.TransactionLine) []*models.TransactionLine {
	var out []*models.TransactionLine
	for _, line := range lines {
		if line.LineType == models.LineTypeDebit || line.LineType == models.LineTypeCredit {
			continue
		}
		out = append(out, line)
	}
	return out
}

func (s *transactionService) Void(ctx context.Context, orgID, actorID, id uuid.UUID, reason string) (*models.TransactionWithLines, error) {
	header, err := s.repos.Transactions.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if header.Status != models.TxStatusPosted {
		return nil, apperrors.NewValidation("transaction_status",
			fmt.Sprintf("only posted transactions can be voided, status is %q", header.Status))
	}
	lines, err := s.repos.Transactions.ListLines(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(map[string]string{
		"reversal_of": header.ID.String(),
		"reason":      reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reversal metadata: %w", err)
	}

	reversal := &models.Transaction{
		OrganizationID:  orgID,
		TransactionType: header.TransactionType,
		Code:            header.Code + "-REV",
		TotalAmount:     header.TotalAmount.Neg(),
		SmartCode:       header.SmartCode,
		SourceEntityID:  header.SourceEntityID,
		TargetEntityID:  header.TargetEntityID,
		Metadata:        meta,
		// Reversals are born terminal: they exist only to offset the
		// original and never go through the draft/posted machine.
		Status:    models.TxStatusReversed,
		CreatedBy: actorRef(actorID),
	}

	err = s.store.WithinTx(ctx, func(r repositories.Repos) error {
		if err := r.Transactions.UpdateStatus(ctx, orgID, id, models.TxStatusPosted, models.TxStatusVoided); err != nil {
			return err
		}
		if err := r.Transactions.InsertHeader(ctx, reversal); err != nil {
			return err
		}
		for i, line := range lines {
			rev := &models.TransactionLine{
				TransactionID:  reversal.ID,
				OrganizationID: orgID,
				LineNumber:     i + 1,
				LineType:       line.LineType,
				EntityID:       line.EntityID,
				Description:    line.Description,
				Quantity:       line.Quantity,
				UnitAmount:     line.UnitAmount.Neg(),
				LineAmount:     line.LineAmount.Neg(),
				SmartCode:      line.SmartCode,
			}
			if err := r.Transactions.InsertLine(ctx, rev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction voided",
		zap.String("organization_id", orgID.String()),
		zap.String("transaction_id", id.String()),
		zap.String("reversal_id", reversal.ID.String()),
		zap.String("reason", reason))

	return s.Get(ctx, orgID, reversal.ID)
}

func generateTransactionCode(transactionType string) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(transactionType), time.Now().UnixNano())
}
