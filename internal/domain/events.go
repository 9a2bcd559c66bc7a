package domain

// Event topics
const (
	TopicAccountCreated     = "account.created"
	TopicTransactionCreated = "transaction.created"
	TopicWithdrawalCreated  = "withdrawal.created"
	TopicDepositCreated     = "deposit.created"
)
