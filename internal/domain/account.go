package domain

import "time"

// Account represents a ledger account. All accounts are asset accounts:
// a debit adds money and a credit removes it.
type Account struct {
	ID   string `json:"id"   bson:"_id"`
	Name string `json:"name" bson:"name"`
	// ReadonlyBalance caches the live balance in cents. It is written only at
	// creation and by an explicit refresh, and is never used to authorize a debit.
	ReadonlyBalance int64     `json:"readonlyBalance" bson:"readonlyBalance"`
	CreatedAt       time.Time `json:"createdAt"       bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"       bson:"updatedAt"`
}

// GlobalID returns the opaque reference exposed to callers.
func (a *Account) GlobalID() string {
	return EncodeGlobalID(KindAccount, a.ID)
}

// IsStale reports whether the cached balance differs from the live one.
func (a *Account) IsStale(liveBalance int64) bool {
	return a.ReadonlyBalance != liveBalance
}

// AccountRef is the result of an account mutation.
type AccountRef struct {
	ID string
}
