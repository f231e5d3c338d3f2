// Package summarizer renders transaction records into the natural
// language summaries that get embedded and retrieved. Two renderings
// exist: the conversational per-record summary used by live ingestion
// and the terser corpus text used by batch reindexing.
package summarizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sakthi-S29/trackwise/internal/record"
)

// Defaults substituted for missing fields in ingestion summaries.
const (
	DefaultVendor   = "Unknown Vendor"
	DefaultCategory = "Uncategorized"
)

// FormatAmount renders an amount the way summaries expect: no
// trailing zeros, so 42.5 stays "42.5" and 100 stays "100".
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// ItemsSummary renders the line items as "Item ($amount)" pairs joined
// by commas. An empty slice renders as an empty string.
func ItemsSummary(items []record.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s ($%s)", item.Item, FormatAmount(item.Amount)))
	}
	return strings.Join(parts, ", ")
}

// Summarize renders the conversational summary for one record. Income
// records get a receipt phrasing; expenses with line items enumerate
// them; plain expenses get a payment phrasing. Missing vendor and
// category fall back to defaults.
func Summarize(rec record.Record) string {
	vendor := rec.Vendor
	if vendor == "" {
		vendor = DefaultVendor
	}
	category := rec.Category
	if category == "" {
		category = DefaultCategory
	}
	amount := FormatAmount(rec.Amount)

	if rec.IsIncome() {
		return fmt.Sprintf(
			"On %s, you received an income of $%s from %s, categorized as %s. Description: %s.",
			rec.Date, amount, vendor, category, rec.Description,
		)
	}

	if items := ItemsSummary(rec.LineItems); items != "" {
		return fmt.Sprintf(
			"On %s, you spent $%s at %s on items such as %s, categorized under %s. Description: %s.",
			rec.Date, amount, vendor, items, category, rec.Description,
		)
	}

	return fmt.Sprintf(
		"On %s, you made a payment of $%s at %s, categorized under %s. Description: %s.",
		rec.Date, amount, vendor, category, rec.Description,
	)
}

// CorpusText renders the batch-reindex corpus text for one record.
// Unlike Summarize it reproduces fields as stored, empty ones
// included, and appends each line item as its own clause.
func CorpusText(rec record.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s of $%s on %s. Vendor: %s. Category: %s. Note: %s.",
		rec.Type, FormatAmount(rec.Amount), rec.Date, rec.Vendor, rec.Category, rec.Description)
	for _, item := range rec.LineItems {
		fmt.Fprintf(&sb, " Item: %s ($%s).", item.Item, FormatAmount(item.Amount))
	}
	return sb.String()
}
