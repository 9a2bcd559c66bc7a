package domain

// Entry is a single line of a transaction, debiting or crediting one account.
// Amounts are integer cents.
type Entry struct {
	AccountID   string `json:"accountId"   bson:"accountId"`
	Debit       int64  `json:"debit"       bson:"debit"`
	Credit      int64  `json:"credit"      bson:"credit"`
	Description string `json:"description" bson:"description"`
}

// Net returns the entry's effect on its account's balance.
func (e Entry) Net() int64 {
	return e.Debit - e.Credit
}

// Validate checks that the entry is a simple (one-sided) non-negative entry.
func (e Entry) Validate() error {
	if e.AccountID == "" {
		return ErrInvalidEntry
	}

	if e.Debit < 0 || e.Credit < 0 {
		return ErrInvalidEntry
	}

	if (e.Debit == 0) == (e.Credit == 0) {
		return ErrInvalidEntry
	}

	return nil
}
