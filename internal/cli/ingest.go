package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sakthi-S29/trackwise/internal/record"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Index a transaction record",
		Long: `Read a transaction record as JSON from a file or stdin, summarize
it, embed the summary, and add it to the vector index.

Example record:

  {
    "id": "txn-001",
    "type": "expense",
    "amount": 42.5,
    "date": "2024-03-15",
    "category": "Dining",
    "vendor": "Cafe Luna",
    "description": "Lunch with client"
  }`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var input io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening record file: %w", err)
		}
		defer f.Close()
		input = f
	}

	var rec record.Record
	if err := json.NewDecoder(input).Decode(&rec); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ingestor, err := newIngestor(c)
	if err != nil {
		return err
	}

	entry, err := ingestor.Ingest(ctx, rec)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %s\n", entry.ID)
	fmt.Printf("  %s\n", entry.Text)
	return nil
}
