package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Now()
	account := &domain.Account{
		ID:            "12345678",
		OwnerID:       "alice",
		Balance:       decimal.RequireFromString("123.4"),
		HasLoan:       true,
		LoanPrincipal: decimal.RequireFromString("100"),
		Version:       2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	resp := AccountFromDomain(account)
	if resp.ID != account.ID || resp.Balance != "123.40" || resp.Version != 2 {
		t.Fatalf("unexpected account response: %+v", resp)
	}
	if !resp.HasLoan || resp.LoanPrincipal != "100.00" {
		t.Fatalf("expected loan fields to carry over, got %+v", resp)
	}
}

func TestTransferFromResult(t *testing.T) {
	result := &usecase.TransferResult{
		Transfer: &domain.Transfer{
			ID:            "tr-1",
			FromAccountID: "11111111",
			ToAccountID:   "22222222",
			Amount:        decimal.RequireFromString("10"),
			CreatedAt:     time.Now(),
		},
		FromBalance: decimal.RequireFromString("90"),
		ToBalance:   decimal.RequireFromString("10.5"),
	}

	resp := TransferFromResult(result)
	if resp.ID != "tr-1" || resp.Amount != "10.00" || resp.FromBalance != "90.00" || resp.ToBalance != "10.50" {
		t.Fatalf("unexpected transfer response: %+v", resp)
	}
}

func TestEntriesFromDomain(t *testing.T) {
	entries := []*domain.Entry{{
		ID:              "e-1",
		AccountID:       "12345678",
		Kind:            domain.EntryKindWithdrawal,
		Amount:          decimal.RequireFromString("-5"),
		PreviousBalance: decimal.RequireFromString("20"),
		CurrentBalance:  decimal.RequireFromString("15"),
		AccountVersion:  3,
	}}

	list := EntriesFromDomain(entries)
	if len(list) != 1 {
		t.Fatalf("EntriesFromDomain returned %+v", list)
	}
	if list[0].Kind != "withdrawal" || list[0].Amount != "-5.00" || list[0].CurrentBalance != "15.00" {
		t.Fatalf("unexpected entry response: %+v", list[0])
	}
}

func TestLoanFromDomain(t *testing.T) {
	loan, err := domain.NewLoan("loan-1", "alice", decimal.NewFromInt(1000), decimal.NewFromInt(5), time.Now())
	if err != nil {
		t.Fatalf("NewLoan: %v", err)
	}

	resp := LoanFromDomain(loan)
	if resp.TotalRepayable != "1050.00" || resp.Status != "pending" || resp.ApprovedAt != nil {
		t.Fatalf("unexpected loan response: %+v", resp)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["decided_at"]; ok {
		t.Fatalf("pending loan should omit decided_at, got %s", raw)
	}
}

func TestErrorFromDomain(t *testing.T) {
	err := &domain.Error{
		Op:        "withdraw",
		Kind:      domain.ErrInsufficientFunds,
		AccountID: "12345678",
		Amount:    decimal.RequireFromString("25"),
	}

	resp := ErrorFromDomain("withdrawal failed", err)
	if resp.Kind != string(domain.KindInsufficientFunds) {
		t.Fatalf("expected kind insufficient_funds, got %q", resp.Kind)
	}
	if resp.AccountID != "12345678" || resp.Amount != "25.00" || resp.LoanID != "" {
		t.Fatalf("unexpected identifiers: %+v", resp)
	}

	plain := ErrorFromDomain("boom", errors.New("boom"))
	if plain.Kind != string(domain.KindUnknown) || plain.AccountID != "" {
		t.Fatalf("unexpected plain error response: %+v", plain)
	}
}

func TestAmountRequestAcceptsNumbersAndStrings(t *testing.T) {
	for _, body := range []string{`{"amount": 12.5}`, `{"amount": "12.50"}`} {
		var req AmountRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if !req.Amount.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("expected 12.5 from %s, got %s", body, req.Amount)
		}
	}
}
