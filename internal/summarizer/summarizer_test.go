package summarizer

import (
	"strings"
	"testing"

	"github.com/Sakthi-S29/trackwise/internal/record"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{42.5, "42.5"},
		{100, "100"},
		{12.50, "12.5"},
		{0, "0"},
		{1234.56, "1234.56"},
		{0.1, "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatAmount(tt.amount); got != tt.want {
				t.Errorf("FormatAmount(%v) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Run("income record", func(t *testing.T) {
		rec := record.Record{
			ID:          "txn-1",
			Type:        "income",
			Amount:      2500,
			Date:        "2024-03-01",
			Vendor:      "Acme Corp",
			Category:    "Salary",
			Description: "March paycheck",
		}
		got := Summarize(rec)
		want := "On 2024-03-01, you received an income of $2500 from Acme Corp, categorized as Salary. Description: March paycheck."
		if got != want {
			t.Errorf("Summarize() = %q, want %q", got, want)
		}
	})

	t.Run("expense with line items", func(t *testing.T) {
		rec := record.Record{
			ID:          "txn-2",
			Type:        "expense",
			Amount:      42.5,
			Date:        "2024-03-15",
			Vendor:      "Cafe Luna",
			Category:    "Dining",
			Description: "Lunch with client",
			LineItems: []record.LineItem{
				{Item: "Sandwich", Amount: 12.5},
				{Item: "Coffee", Amount: 5},
				{Item: "Dessert", Amount: 25},
			},
		}
		got := Summarize(rec)
		want := "On 2024-03-15, you spent $42.5 at Cafe Luna on items such as Sandwich ($12.5), Coffee ($5), Dessert ($25), categorized under Dining. Description: Lunch with client."
		if got != want {
			t.Errorf("Summarize() = %q, want %q", got, want)
		}
	})

	t.Run("expense without line items", func(t *testing.T) {
		rec := record.Record{
			ID:          "txn-3",
			Type:        "expense",
			Amount:      60,
			Date:        "2024-03-20",
			Vendor:      "City Power",
			Category:    "Utilities",
			Description: "Electric bill",
		}
		got := Summarize(rec)
		want := "On 2024-03-20, you made a payment of $60 at City Power, categorized under Utilities. Description: Electric bill."
		if got != want {
			t.Errorf("Summarize() = %q, want %q", got, want)
		}
	})

	t.Run("missing vendor and category take defaults", func(t *testing.T) {
		rec := record.Record{
			ID:     "txn-4",
			Type:   "expense",
			Amount: 15,
			Date:   "2024-04-01",
		}
		got := Summarize(rec)
		if !strings.Contains(got, DefaultVendor) {
			t.Errorf("summary %q does not contain %q", got, DefaultVendor)
		}
		if !strings.Contains(got, DefaultCategory) {
			t.Errorf("summary %q does not contain %q", got, DefaultCategory)
		}
	})

	t.Run("uppercase income type still renders as income", func(t *testing.T) {
		rec := record.Record{
			ID:     "txn-5",
			Type:   "Income",
			Amount: 300,
			Date:   "2024-04-02",
			Vendor: "Side Gig",
		}
		got := Summarize(rec)
		if !strings.Contains(got, "received an income") {
			t.Errorf("summary %q should use the income phrasing", got)
		}
	})

	t.Run("line items appear exactly once in order", func(t *testing.T) {
		rec := record.Record{
			ID:       "txn-6",
			Type:     "expense",
			Amount:   30,
			Date:     "2024-04-03",
			Vendor:   "Market",
			Category: "Groceries",
			LineItems: []record.LineItem{
				{Item: "Apples", Amount: 10},
				{Item: "Bread", Amount: 20},
			},
		}
		got := Summarize(rec)
		if strings.Count(got, "Apples") != 1 || strings.Count(got, "Bread") != 1 {
			t.Errorf("summary %q should mention each item exactly once", got)
		}
		if strings.Index(got, "Apples") > strings.Index(got, "Bread") {
			t.Errorf("summary %q lists items out of order", got)
		}
	})
}

func TestCorpusText(t *testing.T) {
	t.Run("record without items", func(t *testing.T) {
		rec := record.Record{
			ID:          "txn-1",
			Type:        "expense",
			Amount:      60,
			Date:        "2024-03-20",
			Vendor:      "City Power",
			Category:    "Utilities",
			Description: "Electric bill",
		}
		got := CorpusText(rec)
		want := "expense of $60 on 2024-03-20. Vendor: City Power. Category: Utilities. Note: Electric bill."
		if got != want {
			t.Errorf("CorpusText() = %q, want %q", got, want)
		}
	})

	t.Run("record with items appends item clauses", func(t *testing.T) {
		rec := record.Record{
			ID:       "txn-2",
			Type:     "expense",
			Amount:   42.5,
			Date:     "2024-03-15",
			Vendor:   "Cafe Luna",
			Category: "Dining",
			LineItems: []record.LineItem{
				{Item: "Sandwich", Amount: 12.5},
			},
		}
		got := CorpusText(rec)
		want := "expense of $42.5 on 2024-03-15. Vendor: Cafe Luna. Category: Dining. Note: . Item: Sandwich ($12.5)."
		if got != want {
			t.Errorf("CorpusText() = %q, want %q", got, want)
		}
	})

	t.Run("empty fields render as stored", func(t *testing.T) {
		rec := record.Record{ID: "txn-3", Type: "income", Amount: 100, Date: "2024-01-01"}
		got := CorpusText(rec)
		want := "income of $100 on 2024-01-01. Vendor: . Category: . Note: ."
		if got != want {
			t.Errorf("CorpusText() = %q, want %q", got, want)
		}
	})
}
