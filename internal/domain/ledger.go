package domain

// LedgerConsistency summarizes a scan of every stored transaction.
type LedgerConsistency struct {
	Transactions        int64 `json:"transactions"`
	Entries             int64 `json:"entries"`
	UnbalancedTransfers int64 `json:"unbalancedTransfers"`
	InvalidEntries      int64 `json:"invalidEntries"`
}

// Consistent reports whether the scan found no violations.
func (c LedgerConsistency) Consistent() bool {
	return c.UnbalancedTransfers == 0 && c.InvalidEntries == 0
}
