package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newQueryCommand() *cobra.Command {
	var showHits bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question about indexed transactions",
		Long: `Run a single retrieval-augmented query against the index and print
the generated answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), showHits)
		},
	}

	cmd.Flags().BoolVar(&showHits, "hits", false, "show retrieval debug information")

	return cmd
}

func runQuery(cmd *cobra.Command, question string, showHits bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	query, err := newQueryService(c)
	if err != nil {
		return err
	}

	result, err := query.Query(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if showHits {
		fmt.Printf("\n%d hits in %s\n", result.HitsCount, result.Elapsed.Round(time.Millisecond))
		if result.FirstHit != nil {
			fmt.Printf("first hit: %s (%s)\n", result.FirstHit.ID, result.FirstHit.Text)
		}
	}
	return nil
}
