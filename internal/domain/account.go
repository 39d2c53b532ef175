package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxAccountNameLen    = 100
	maxIBANLen           = 34
	maxSavingGoalNameLen = 200
)

// Account is the aggregate root of the wallet. Its identity is independent of
// its components: each optional component shares the account's id as its key,
// and absence of a component means the feature is not enabled for this account.
type Account struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	IsMain    bool      `json:"is_main"`
	Deleted   *Deletion `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CoreDetails   *CoreDetails   `json:"core_details,omitempty"`
	ActiveAccount *ActiveAccount `json:"active_account,omitempty"`
	SpendingLimit *SpendingLimit `json:"spending_limit,omitempty"`
	SavingGoal    *SavingGoal    `json:"saving_goal,omitempty"`
}

// IsDeleted reports whether the account has been soft-deleted.
func (a *Account) IsDeleted() bool { return a.Deleted != nil }

// IsActive reports whether the account carries an ActiveAccount component and
// can therefore transact externally (IBAN transfers).
func (a *Account) IsActive() bool { return a.ActiveAccount != nil }

// CoreDetails holds the display name and balance of an account. The balance
// is only ever mutated inside the transaction-application workflow.
type CoreDetails struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// Validate checks CoreDetails field constraints.
func (c *CoreDetails) Validate() error {
	if c.Name == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if len(c.Name) > maxAccountNameLen {
		return &ErrValidation{Field: "name", Message: "must be at most 100 characters"}
	}
	if !c.Balance.Equal(c.Balance.Round(2)) {
		return &ErrValidation{Field: "balance", Message: "at most 2 fractional digits"}
	}
	return nil
}

// ActiveAccount marks an account as externally addressable via IBAN.
type ActiveAccount struct {
	IBAN        string    `json:"iban"`
	ActivatedAt time.Time `json:"activated_at"`
}

// Validate checks ActiveAccount field constraints.
func (a *ActiveAccount) Validate() error {
	if a.IBAN == "" {
		return &ErrValidation{Field: "iban", Message: "required"}
	}
	if len(a.IBAN) > maxIBANLen {
		return &ErrValidation{Field: "iban", Message: "must be at most 34 characters"}
	}
	return nil
}

// SavingGoal is a descriptive savings target. No enforcement logic is attached
// to it; the wallet only stores and displays it.
type SavingGoal struct {
	Name   string          `json:"name"`
	Target decimal.Decimal `json:"target"`
}

// Validate checks SavingGoal field constraints.
func (g *SavingGoal) Validate() error {
	if g.Name == "" {
		return &ErrValidation{Field: "name", Message: "required"}
	}
	if len(g.Name) > maxSavingGoalNameLen {
		return &ErrValidation{Field: "name", Message: "must be at most 200 characters"}
	}
	if g.Target.IsNegative() {
		return &ErrValidation{Field: "target", Message: "must not be negative"}
	}
	return nil
}
