package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/apperrors"
	"github.com/heraerp/hera-engine/pkg/models"
)

func newTestTransactionService(store *memStore) TransactionService {
	return NewTransactionService(store, store.repos(), zap.NewNop())
}

func saleInput(customerID *uuid.UUID) TransactionInput {
	return TransactionInput{
		TransactionType: "sale",
		SmartCode:       "HERA.SALON.POS.SALE.HEADER.v1",
		SourceEntityID:  customerID,
		Lines: []TransactionLineInput{
			{
				Description: "Haircut",
				Quantity:    decimal.NewFromInt(1),
				UnitAmount:  decimal.NewFromInt(50),
				SmartCode:   "HERA.SALON.POS.SALE.LINE.SERVICE.v1",
			},
			{
				Description: "Shampoo",
				Quantity:    decimal.NewFromInt(2),
				UnitAmount:  decimal.RequireFromString("12.50"),
				SmartCode:   "HERA.SALON.POS.SALE.LINE.PRODUCT.v1",
			},
		},
	}
}

func TestTransactionService_Create_ComputesTotal(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	tx, err := service.Create(context.Background(), org.ID, uuid.New(), saleInput(nil))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !tx.TotalAmount.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected total 75, got %s", tx.TotalAmount)
	}
	if tx.Status != models.TxStatusDraft {
		t.Errorf("expected draft, got %q", tx.Status)
	}
	if len(tx.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(tx.Lines))
	}
	if tx.Lines[0].LineNumber != 1 || tx.Lines[1].LineNumber != 2 {
		t.Errorf("line numbers must start at 1 and increase: %d, %d",
			tx.Lines[0].LineNumber, tx.Lines[1].LineNumber)
	}
	if !tx.Lines[1].LineAmount.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected line amount 25, got %s", tx.Lines[1].LineAmount)
	}
}

func TestTransactionService_Create_ImbalancedTotal(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	input := saleInput(nil)
	declared := decimal.NewFromInt(80)
	input.TotalAmount = &declared

	_, err := service.Create(context.Background(), org.ID, uuid.New(), input)
	if !errors.Is(err, apperrors.ErrImbalance) {
		t.Fatalf("expected imbalance error, got: %v", err)
	}
	if len(store.txs) != 0 {
		t.Error("imbalanced create should write nothing")
	}
}

func TestTransactionService_Create_ImbalancedTotal_ExplicitOptOut(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	input := saleInput(nil)
	declared := decimal.NewFromInt(80)
	skip := false
	input.TotalAmount = &declared
	input.ValidateBalance = &skip

	tx, err := service.Create(context.Background(), org.ID, uuid.New(), input)
	if err != nil {
		t.Fatalf("Create with balance check disabled failed: %v", err)
	}
	if !tx.TotalAmount.Equal(declared) {
		t.Errorf("expected declared total %s kept, got %s", declared, tx.TotalAmount)
	}
}

func TestTransactionService_Create_MissingLineEntity(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	input := saleInput(nil)
	ghost := uuid.New()
	input.Lines[0].EntityID = &ghost

	_, err := service.Create(context.Background(), org.ID, uuid.New(), input)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestTransactionService_Create_CrossOrgEntityRef(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	orgA := store.seedOrg("Org A", "ORG-A")
	orgB := store.seedOrg("Org B", "ORG-B")
	foreign := store.seedEntity(orgB.ID, "customer", "Other", "CUST-001", "HERA.CRM.CUSTOMER.PROFILE.STANDARD.v1")

	_, err := service.Create(context.Background(), orgA.ID, uuid.New(), saleInput(&foreign.ID))
	if !errors.Is(err, apperrors.ErrCrossOrgAccess) {
		t.Fatalf("expected cross-org error, got: %v", err)
	}
}

func TestTransactionService_PostToLedger(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	tx, err := service.Create(context.Background(), org.ID, uuid.New(), saleInput(nil))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	posted, err := service.PostToLedger(context.Background(), org.ID, tx.ID)
	if err != nil {
		t.Fatalf("PostToLedger failed: %v", err)
	}
	if posted.Status != models.TxStatusPosted {
		t.Errorf("expected posted, got %q", posted.Status)
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, line := range posted.Lines {
		switch line.LineType {
		case models.LineTypeDebit:
			if line.SmartCode != models.GLDebitSmartCode {
				t.Errorf("unexpected debit smart code %q", line.SmartCode)
			}
			debits = debits.Add(line.LineAmount)
		case models.LineTypeCredit:
			if line.SmartCode != models.GLCreditSmartCode {
				t.Errorf("unexpected credit smart code %q", line.SmartCode)
			}
			credits = credits.Add(line.LineAmount)
		}
	}
	if !debits.Equal(credits) {
		t.Errorf("ledger must balance: debits %s, credits %s", debits, credits)
	}
	if !debits.Equal(posted.TotalAmount) {
		t.Errorf("debits %s should equal header total %s", debits, posted.TotalAmount)
	}
}

func TestTransactionService_PostToLedger_ImbalanceFailsClosed(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	input := saleInput(nil)
	declared := decimal.NewFromInt(80)
	skip := false
	input.TotalAmount = &declared
	input.ValidateBalance = &skip
	tx, err := service.Create(context.Background(), org.ID, uuid.New(), input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	lineCount := len(tx.Lines)

	_, err = service.PostToLedger(context.Background(), org.ID, tx.ID)
	if !errors.Is(err, apperrors.ErrImbalance) {
		t.Fatalf("expected imbalance error, got: %v", err)
	}

	after, err := service.Get(context.Background(), org.ID, tx.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.Status != models.TxStatusDraft {
		t.Errorf("failed posting must leave the transaction in draft, got %q", after.Status)
	}
	if len(after.Lines) != lineCount {
		t.Errorf("failed posting must not append lines: had %d, now %d", lineCount, len(after.Lines))
	}
}

func TestTransactionService_PostToLedger_OnlyFromDraft(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	tx, err := service.Create(context.Background(), org.ID, uuid.New(), saleInput(nil))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.PostToLedger(context.Background(), org.ID, tx.ID); err != nil {
		t.Fatalf("first post failed: %v", err)
	}

	_, err = service.PostToLedger(context.Background(), org.ID, tx.ID)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error on double post, got: %v", err)
	}
}

func TestTransactionService_Create_AutoPost(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	input := saleInput(nil)
	input.AutoPostLedger = true
	tx, err := service.Create(context.Background(), org.ID, uuid.New(), input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tx.Status != models.TxStatusPosted {
		t.Errorf("expected posted, got %q", tx.Status)
	}
	// 2 business lines, 2 derived debits, 1 balancing credit.
	if len(tx.Lines) != 5 {
		t.Errorf("expected 5 lines, got %d", len(tx.Lines))
	}
}

func TestTransactionService_Void(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")
	actor := uuid.New()

	tx, err := service.Create(context.Background(), org.ID, actor, saleInput(nil))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.PostToLedger(context.Background(), org.ID, tx.ID); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	reversal, err := service.Void(context.Background(), org.ID, actor, tx.ID, "cashier error")
	if err != nil {
		t.Fatalf("Void failed: %v", err)
	}
	if !reversal.TotalAmount.Equal(tx.TotalAmount.Neg()) {
		t.Errorf("expected negated total, got %s", reversal.TotalAmount)
	}
	if reversal.Status != models.TxStatusReversed {
		t.Errorf("expected reversed reversal document, got %q", reversal.Status)
	}

	var meta map[string]string
	if err := json.Unmarshal(reversal.Metadata, &meta); err != nil {
		t.Fatalf("bad reversal metadata: %v", err)
	}
	if meta["reversal_of"] != tx.ID.String() {
		t.Errorf("expected reversal_of %s, got %q", tx.ID, meta["reversal_of"])
	}
	if meta["reason"] != "cashier error" {
		t.Errorf("expected reason preserved, got %q", meta["reason"])
	}

	original, err := service.Get(context.Background(), org.ID, tx.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if original.Status != models.TxStatusVoided {
		t.Errorf("expected voided original, got %q", original.Status)
	}

	for i, line := range reversal.Lines {
		if !line.LineAmount.Equal(original.Lines[i].LineAmount.Neg()) {
			t.Errorf("line %d: expected %s, got %s", i+1, original.Lines[i].LineAmount.Neg(), line.LineAmount)
		}
	}
}

func TestTransactionService_Void_DraftRejected(t *testing.T) {
	store := newMemStore()
	service := newTestTransactionService(store)
	org := store.seedOrg("Demo Salon", "DEMO-SALON")

	tx, err := service.Create(context.Background(), org.ID, uuid.New(), saleInput(nil))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = service.Void(context.Background(), org.ID, uuid.New(), tx.ID, "nope")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
}
