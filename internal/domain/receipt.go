package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the durable record of a successfully processed order.
// It is created exactly once per order number and never mutated or deleted.
type Receipt struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	UserID         string          `json:"userId"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentGateway string          `json:"paymentGateway"`
	Description    string          `json:"description,omitempty"`
	ProcessedDate  time.Time       `json:"processedDate"`
	TransactionID  string          `json:"transactionId"`
}
