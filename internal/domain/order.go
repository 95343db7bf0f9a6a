// Package domain holds the billing domain types shared by the gateway,
// store, and service layers, plus the error kinds they report.
package domain

import (
	"github.com/shopspring/decimal"
)

// OrderRequest is the caller-supplied payment request. It is immutable once
// received; the service copies its fields into the receipt on success.
type OrderRequest struct {
	OrderNumber    string          `json:"orderNumber"`
	UserID         string          `json:"userId"`
	PayableAmount  decimal.Decimal `json:"payableAmount"`
	PaymentGateway string          `json:"paymentGateway"`
	Description    string          `json:"description,omitempty"`
}

// PaymentResult is the outcome of a single gateway charge attempt.
// A declined payment is a normal result with Success=false, never an error;
// errors are reserved for transport failures where no outcome exists.
type PaymentResult struct {
	Success       bool   `json:"isSuccess"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}
