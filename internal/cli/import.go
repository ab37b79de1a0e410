package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/restomaps/internal/model"
	"github.com/ppiankov/restomaps/internal/pipeline"
	"github.com/ppiankov/restomaps/internal/store"
	"github.com/spf13/cobra"
)

var (
	importTimeout time.Duration
	httpProxy     string
	httpsProxy    string
	noRobots      bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file|url>...",
	Short: "Load scraped review dumps into the store",
	Long: `Import reads review dumps in JSON Lines form, one review per line:

  {"restaurant_id": ..., "review_id": ..., "author": ..., "rating": ...,
   "text": ..., "date_iso": ...}

A dump that starts with '[' is read as a JSON array instead. Review text is
stripped of HTML. Reviews already stored for their restaurant are skipped,
so a dump can be imported again safely. Malformed lines are logged and
counted.

Remote dumps are downloaded over HTTP(S), honouring robots.txt, the per-host
rate limit and the proxy settings.

Example:
  restomaps import reviews.jsonl
  restomaps import https://example.com/dumps/moscow.jsonl --https-proxy http://proxy:3128`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().DurationVar(&importTimeout, "timeout", 10*time.Minute, "total timeout for the import")
	importCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	importCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	importCmd.Flags().BoolVar(&noRobots, "ignore-robots", false, "do not check robots.txt for remote dumps")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), importTimeout)
	defer cancel()

	cfg := *appConfig
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if noRobots {
		cfg.HTTP.RespectRobots = false
	}

	p, closeStore, err := openPipeline(&cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Restomaps Import\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Database:     %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Sources:      %d\n", len(args))
	fmt.Fprintf(os.Stderr, "\n")

	var total pipeline.ImportSummary
	for _, src := range args {
		summary, err := p.Import(ctx, src)
		if err != nil {
			return fmt.Errorf("import %s: %w", src, err)
		}

		fmt.Fprintf(os.Stderr, "✓ %s\n", src)
		fmt.Fprintf(os.Stderr, "    records %d, skipped %d, restaurants %d, new reviews %d of %d\n",
			summary.Records, summary.Skipped, summary.Restaurants, summary.New, summary.Found)
		if summary.Issues > 0 {
			fmt.Fprintf(os.Stderr, "    %d records imported with a cleared rating or date (see log)\n", summary.Issues)
		}

		total.Records += summary.Records
		total.Skipped += summary.Skipped
		total.Restaurants += summary.Restaurants
		total.Found += summary.Found
		total.New += summary.New
	}

	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "\n  Total: %d records, %d new reviews, %d skipped lines\n",
			total.Records, total.New, total.Skipped)
	}
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}

// openPipeline opens the configured store and builds a pipeline over it.
// The returned func closes the store.
func openPipeline(cfg *model.Config) (*pipeline.Pipeline, func(), error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	closeStore := func() {
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing store: %v\n", err)
		}
	}

	p, err := pipeline.NewPipeline(cfg, st, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return p, closeStore, nil
}
