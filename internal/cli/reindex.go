package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReindexCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the record store",
		Long: `Scan every record in the configured record store, regenerate its
summary and embedding, and replace the vector index contents in a
single rebuild. The text cache is replaced to match.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel embedding calls (0 uses the default)")

	return cmd
}

func runReindex(cmd *cobra.Command, concurrency int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AWS.DynamoTable == "" {
		return fmt.Errorf("reindex requires a record store, set aws.dynamo_table")
	}

	ctx := cmd.Context()
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	indexer, err := newBatchIndexer(c)
	if err != nil {
		return err
	}
	if concurrency > 0 {
		indexer = indexer.WithConcurrency(concurrency)
	}

	start := time.Now()
	count, err := indexer.Reindex(ctx)
	if err != nil {
		return err
	}
	if err := c.publish(ctx); err != nil {
		return fmt.Errorf("publishing index: %w", err)
	}

	fmt.Printf("Reindexed %d records in %s\n", count, time.Since(start).Round(time.Millisecond))
	return nil
}
