// Package reporting aggregates billing outcomes into retrospective summary
// reports served by the report endpoint.
package reporting

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Entry statuses.
const (
	StatusPersisted = "PERSISTED"
	StatusDeclined  = "DECLINED"
	StatusDuplicate = "DUPLICATE"
	StatusError     = "ERROR"
)

// Entry records the terminal outcome of one order attempt.
type Entry struct {
	Timestamp    time.Time       `json:"timestamp"`
	OrderNumber  string          `json:"orderNumber"`
	UserID       string          `json:"userId"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Gateway      string          `json:"gateway"`
	ErrorKind    string          `json:"errorKind,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// RetrospectiveReport summarizes billing activity over a set of entries.
type RetrospectiveReport struct {
	TotalOrders          int                        `json:"totalOrders"`
	SuccessfulOrders     int                        `json:"successfulOrders"`
	DeclinedPayments     int                        `json:"declinedPayments"`
	DuplicateRejections  int                        `json:"duplicateRejections"`
	FailedOrders         int                        `json:"failedOrders"`
	TotalAmountProcessed decimal.Decimal            `json:"totalAmountProcessed"`
	AmountByGateway      map[string]decimal.Decimal `json:"amountByGateway"`
	ErrorBreakdown       map[string]int             `json:"errorBreakdown"`
	GatewayUsage         map[string]int             `json:"gatewayUsage"`
	DateFrom             time.Time                  `json:"dateFrom"`
	DateTo               time.Time                  `json:"dateTo"`
}

// Recorder collects entries from concurrent request handlers.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one outcome entry.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a snapshot of all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// GenerateRetrospective analyzes entries and produces a report. Amounts are
// summed for successful orders only.
func GenerateRetrospective(entries []Entry) *RetrospectiveReport {
	report := &RetrospectiveReport{
		TotalAmountProcessed: decimal.Zero,
		AmountByGateway:      make(map[string]decimal.Decimal),
		ErrorBreakdown:       make(map[string]int),
		GatewayUsage:         make(map[string]int),
	}
	if len(entries) == 0 {
		return report
	}

	report.DateFrom = entries[0].Timestamp
	report.DateTo = entries[0].Timestamp

	for _, e := range entries {
		report.TotalOrders++

		if e.Timestamp.Before(report.DateFrom) {
			report.DateFrom = e.Timestamp
		}
		if e.Timestamp.After(report.DateTo) {
			report.DateTo = e.Timestamp
		}
		if e.Gateway != "" {
			report.GatewayUsage[e.Gateway]++
		}

		switch e.Status {
		case StatusPersisted:
			report.SuccessfulOrders++
			report.TotalAmountProcessed = report.TotalAmountProcessed.Add(e.Amount)
			current, ok := report.AmountByGateway[e.Gateway]
			if !ok {
				current = decimal.Zero
			}
			report.AmountByGateway[e.Gateway] = current.Add(e.Amount)
		case StatusDeclined:
			report.DeclinedPayments++
		case StatusDuplicate:
			report.DuplicateRejections++
		case StatusError:
			report.FailedOrders++
		}

		if e.ErrorKind != "" && e.Status != StatusPersisted {
			report.ErrorBreakdown[e.ErrorKind]++
		}
	}

	return report
}
