package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLen = 500

// PartyType tags which reference a transaction party carries.
type PartyType string

const (
	PartyAccount PartyType = "ACCOUNT"
	PartyIBAN    PartyType = "IBAN"
	PartySystem  PartyType = "SYSTEM"
	PartySpend   PartyType = "SPEND"
)

// Party describes one side of a transaction. Exactly one of AccountID, IBAN
// or Name is populated, consistent with the declared type: ACCOUNT carries an
// internal account id, IBAN an external account number, SYSTEM/SPEND only a
// display name.
type Party struct {
	Type      PartyType  `json:"type"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	IBAN      string     `json:"iban,omitempty"`
	Name      string     `json:"name,omitempty"`
}

// validate checks type/reference consistency. side is the field name reported
// in validation errors ("source" or "destination").
func (p *Party) validate(side string, allowed ...PartyType) error {
	ok := false
	for _, t := range allowed {
		if p.Type == t {
			ok = true
			break
		}
	}
	if !ok {
		return &ErrValidation{Field: side + ".type", Message: "unsupported party type"}
	}

	switch p.Type {
	case PartyAccount:
		if p.AccountID == nil || p.IBAN != "" || p.Name != "" {
			return &ErrValidation{Field: side, Message: "ACCOUNT party must carry exactly an account id"}
		}
	case PartyIBAN:
		if p.IBAN == "" || p.AccountID != nil || p.Name != "" {
			return &ErrValidation{Field: side, Message: "IBAN party must carry exactly an IBAN"}
		}
		if len(p.IBAN) > maxIBANLen {
			return &ErrValidation{Field: side + ".iban", Message: "must be at most 34 characters"}
		}
	case PartySystem, PartySpend:
		if p.Name == "" || p.AccountID != nil || p.IBAN != "" {
			return &ErrValidation{Field: side, Message: "must carry exactly a name"}
		}
	}
	return nil
}

// Transaction is an immutable, append-only ledger entry. Corrections are new
// offsetting transactions (see ReversalOf), never edits.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Source      Party           `json:"source"`
	Destination Party           `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`

	// Balance snapshots taken immediately before the transaction applied,
	// present only for internal ACCOUNT parties.
	SourceBalanceBefore      *decimal.Decimal `json:"source_balance_before,omitempty"`
	DestinationBalanceBefore *decimal.Decimal `json:"destination_balance_before,omitempty"`

	// ReversalOf links an offsetting entry to the transaction it corrects.
	ReversalOf *uuid.UUID `json:"reversal_of,omitempty"`

	Deleted   *Deletion `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks transaction field constraints: party consistency, positive
// amount with at most 2 fractional digits, bounded description.
func (t *Transaction) Validate() error {
	if err := t.Source.validate("source", PartyAccount, PartyIBAN, PartySystem); err != nil {
		return err
	}
	if err := t.Destination.validate("destination", PartyAccount, PartyIBAN, PartySpend); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return &ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if !t.Amount.Equal(t.Amount.Round(2)) {
		return &ErrValidation{Field: "amount", Message: "at most 2 fractional digits"}
	}
	if len(t.Description) > maxDescriptionLen {
		return &ErrValidation{Field: "description", Message: "must be at most 500 characters"}
	}
	return nil
}
