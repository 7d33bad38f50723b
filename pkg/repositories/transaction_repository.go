package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/database"
	"github.com/heraerp/hera-engine/pkg/models"
)

// TransactionRepository provides data access for transaction headers and
// their lines. Lines are owned by the header; the schema cascades deletes.
type TransactionRepository interface {
	InsertHeader(ctx context.Context, tx *models.Transaction) error
	InsertLine(ctx context.Context, line *models.TransactionLine) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Transaction, error)
	ListLines(ctx context.Context, orgID, transactionID uuid.UUID) ([]*models.TransactionLine, error)
	List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error)
	// UpdateStatus transitions the header status guarded by the expected
	// current status, enforcing the draft -> posted -> (voided|reversed)
	// machine at the row level.
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, fromStatus, toStatus string) error
	// NextLineNumber returns one past the highest line number on the
	// transaction, starting at 1.
	NextLineNumber(ctx context.Context, orgID, transactionID uuid.UUID) (int, error)
}

type transactionRepository struct {
	q database.Querier
}

// NewTransactionRepository creates a TransactionRepository over the given querier.
func NewTransactionRepository(q database.Querier) TransactionRepository {
	return &transactionRepository{q: q}
}

var _ TransactionRepository = (*transactionRepository)(nil)

const transactionColumns = `id, organization_id, transaction_type, transaction_code, transaction_date,
	total_amount, smart_code, source_entity_id, target_entity_id, metadata, transaction_status,
	created_by, created_at, updated_at`

const transactionLineColumns = `id, transaction_id, organization_id, line_number, line_type,
	entity_id, description, quantity, unit_amount, line_amount, smart_code, created_at`

func (r *transactionRepository) InsertHeader(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Date.IsZero() {
		tx.Date = now
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO universal_transactions (id, organization_id, transaction_type, transaction_code,
			transaction_date, total_amount, smart_code, source_entity_id, target_entity_id,
			metadata, transaction_status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tx.ID, tx.OrganizationID, tx.TransactionType, tx.Code,
		tx.Date, tx.TotalAmount, tx.SmartCode, tx.SourceEntityID, tx.TargetEntityID,
		tx.Metadata, tx.Status, tx.CreatedBy, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewDuplicateCode("transaction", tx.Code)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) InsertLine(ctx context.Context, line *models.TransactionLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	line.CreatedAt = time.Now()

	_, err := r.q.Exec(ctx, `
		INSERT INTO universal_transaction_lines (id, transaction_id, organization_id, line_number,
			line_type, entity_id, description, quantity, unit_amount, line_amount, smart_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		line.ID, line.TransactionID, line.OrganizationID, line.LineNumber,
		line.LineType, line.EntityID, line.Description, line.Quantity, line.UnitAmount,
		line.LineAmount, line.SmartCode, line.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("line %d already exists on transaction %s: %w",
				line.LineNumber, line.TransactionID, apperrors.ErrDuplicateCode)
		}
		return fmt.Errorf("failed to insert transaction line: %w", err)
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Transaction, error) {
	row := r.q.QueryRow(ctx, `SELECT `+transactionColumns+`
		FROM universal_transactions WHERE id = $1 AND organization_id = $2`, id, orgID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewReferential("transaction", id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) ListLines(ctx context.Context, orgID, transactionID uuid.UUID) ([]*models.TransactionLine, error) {
	rows, err := r.q.Query(ctx, `SELECT `+transactionLineColumns+`
		FROM universal_transaction_lines
		WHERE organization_id = $1 AND transaction_id = $2
		ORDER BY line_number`, orgID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction lines: %w", err)
	}
	defer rows.Close()

	var lines []*models.TransactionLine
	for rows.Next() {
		line, err := scanTransactionLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction lines: %w", err)
	}
	return lines, nil
}

func (r *transactionRepository) List(ctx context.Context, orgID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM universal_transactions WHERE organization_id = $1`
	args := []any{orgID}

	if filter.TransactionType != "" {
		args = append(args, filter.TransactionType)
		query += fmt.Sprintf(" AND transaction_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND transaction_status = $%d", len(args))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
	}
	query += " ORDER BY transaction_date DESC, transaction_code"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, fromStatus, toStatus string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE universal_transactions
		SET transaction_status = $1, updated_at = $2
		WHERE id = $3 AND organization_id = $4 AND transaction_status = $5`,
		toStatus, time.Now(), id, orgID, fromStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, orgID, id)
		if err != nil {
			return err
		}
		return apperrors.NewValidation("transaction_status",
			fmt.Sprintf("cannot transition from %q to %q", current.Status, toStatus))
	}
	return nil
}

func (r *transactionRepository) NextLineNumber(ctx context.Context, orgID, transactionID uuid.UUID) (int, error) {
	var next int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(line_number), 0) + 1
		FROM universal_transaction_lines
		WHERE organization_id = $1 AND transaction_id = $2`,
		orgID, transactionID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next line number: %w", err)
	}
	return next, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.OrganizationID, &tx.TransactionType, &tx.Code, &tx.Date,
		&tx.TotalAmount, &tx.SmartCode, &tx.SourceEntityID, &tx.TargetEntityID, &tx.Metadata,
		&tx.Status, &tx.CreatedBy, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func scanTransactionLine(row pgx.Row) (*models.TransactionLine, error) {
	var line models.TransactionLine
	err := row.Scan(&line.ID, &line.TransactionID, &line.OrganizationID, &line.LineNumber,
		&line.LineType, &line.EntityID, &line.Description, &line.Quantity, &line.UnitAmount,
		&line.LineAmount, &line.SmartCode, &line.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &line, nil
}
