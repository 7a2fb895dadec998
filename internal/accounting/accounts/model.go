package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type is one of the five categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Codes are unique per organization;
// system accounts cannot be deleted or retyped.
type Account struct {
	ID        int64
	OrgID     int64
	Code      string
	Name      string
	Type      AccountType
	IsActive  bool
	IsSystem  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
