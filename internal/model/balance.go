package model

import "time"

// Balance is a user's spendable amount in minor currency units.
type Balance struct {
	UserID    string    `bson:"_id" json:"user_id"`
	Amount    int64     `bson:"amount" json:"amount"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// BalanceEventKind discriminates BalanceEvent.
type BalanceEventKind string

const (
	BalanceCharged  BalanceEventKind = "CHARGED"
	BalanceDeducted BalanceEventKind = "DEDUCTED"
	BalanceRefunded BalanceEventKind = "REFUNDED"
)

// BalanceEvent describes one balance mutation. All kinds share the same payload;
// consumers switch on Kind.
type BalanceEvent struct {
	Kind              BalanceEventKind `json:"kind"`
	UserID            string           `json:"user_id"`
	BeforeAmount      int64            `json:"before_amount"`
	AfterAmount       int64            `json:"after_amount"`
	TransactionAmount int64            `json:"transaction_amount"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// NewBalanceEvent builds an event for a change from before to after.
func NewBalanceEvent(kind BalanceEventKind, userID string, before, after int64, at time.Time) BalanceEvent {
	amount := after - before
	if amount < 0 {
		amount = -amount
	}
	return BalanceEvent{
		Kind:              kind,
		UserID:            userID,
		BeforeAmount:      before,
		AfterAmount:       after,
		TransactionAmount: amount,
		OccurredAt:        at,
	}
}

// ChargeRequest represents a balance top-up
type ChargeRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}
