// Package record defines financial transaction records and the stores
// that hold them. Records arrive from manual entry or receipt parsing
// and feed the indexing pipeline.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Record types
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Record sources
const (
	SourceManual   = "manual"
	SourceReceipt  = "textract"
	SourceImported = "import"
)

// LineItem is one itemized entry on a parsed receipt
type LineItem struct {
	Item     string  `json:"item" dynamodbav:"item"`
	Amount   float64 `json:"amount" dynamodbav:"amount"`
	Category string  `json:"category,omitempty" dynamodbav:"category,omitempty"`
}

// Record is one financial transaction
type Record struct {
	ID          string     `json:"id" dynamodbav:"id"`
	Type        string     `json:"type" dynamodbav:"type"`
	Amount      float64    `json:"amount" dynamodbav:"amount"`
	Date        string     `json:"date" dynamodbav:"date"` // YYYY-MM-DD
	Category    string     `json:"category" dynamodbav:"category"`
	Description string     `json:"description" dynamodbav:"description"`
	Vendor      string     `json:"vendor" dynamodbav:"vendor"`
	LineItems   []LineItem `json:"line_items,omitempty" dynamodbav:"line_items,omitempty"`
	Source      string     `json:"source,omitempty" dynamodbav:"source,omitempty"`
}

// IsIncome reports whether the record is an income record. Type
// comparison is case-insensitive; anything that is not income is
// treated as an expense.
func (r Record) IsIncome() bool {
	return strings.EqualFold(r.Type, TypeIncome)
}

// Timestamp derives the record's timestamp from its date field,
// midnight UTC on the transaction date.
func (r Record) Timestamp() (time.Time, error) {
	ts, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("record %s has invalid date %q: %w", r.ID, r.Date, err)
	}
	return ts, nil
}

// Validate checks the fields ingestion depends on
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if r.Type == "" {
		return fmt.Errorf("record %s: type is required", r.ID)
	}
	if r.Date == "" {
		return fmt.Errorf("record %s: date is required", r.ID)
	}
	if _, err := r.Timestamp(); err != nil {
		return err
	}
	return nil
}
