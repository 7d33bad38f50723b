package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction status state machine: draft -> posted -> (voided | reversed).
// Posted transactions are immutable; corrections happen by reversal. Voiding
// marks the original voided and creates the offsetting document directly in
// reversed, a terminal state.
const (
	TxStatusDraft    = "draft"
	TxStatusPosted   = "posted"
	TxStatusVoided   = "voided"
	TxStatusReversed = "reversed"
)

// GL line types for auto-posted ledger lines.
const (
	LineTypeDebit  = "DEBIT"
	LineTypeCredit = "CREDIT"
)

// Smart codes stamped on derived ledger lines.
const (
	GLDebitSmartCode  = "HERA.FIN.GL.LINE.DEBIT.v1"
	GLCreditSmartCode = "HERA.FIN.GL.LINE.CREDIT.v1"
)

// Transaction is the generic header of any business event: a sale, a payment,
// a journal entry, a leave request. transaction_code is unique per
// organization.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	OrganizationID  uuid.UUID       `json:"organization_id"`
	TransactionType string          `json:"transaction_type"`
	Code            string          `json:"transaction_code"`
	Date            time.Time       `json:"transaction_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SmartCode       string          `json:"smart_code"`
	SourceEntityID  *uuid.UUID      `json:"source_entity_id,omitempty"`
	TargetEntityID  *uuid.UUID      `json:"target_entity_id,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	Status          string          `json:"transaction_status"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TransactionLine is one itemized line of a transaction. line_number is
// unique within the transaction and strictly increasing from 1. Lines are
// owned by their header and deleted with it.
type TransactionLine struct {
	ID             uuid.UUID       `json:"id"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	LineNumber     int             `json:"line_number"`
	LineType       string          `json:"line_type"`
	EntityID       *uuid.UUID      `json:"entity_id,omitempty"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitAmount     decimal.Decimal `json:"unit_amount"`
	LineAmount     decimal.Decimal `json:"line_amount"`
	SmartCode      string          `json:"smart_code"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TransactionWithLines is the read shape: header plus ordered lines.
type TransactionWithLines struct {
	Transaction
	Lines []*TransactionLine `json:"lines"`
}

// TransactionFilter narrows transaction reads within one organization.
type TransactionFilter struct {
	TransactionType string
	Status          string
	DateFrom        time.Time
	DateTo          time.Time
}
