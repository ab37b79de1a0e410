package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/restomaps/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	annotateForce      bool
	annotateRestaurant int64
	annotateLimit      int
	annotateBatchSize  int
	annotateWorkers    int
	annotateNoCache    bool
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate stored reviews that have no verdict yet",
	Long: `Annotate runs every pending review with text through the annotation
rules and stores its sentiment score, verdict and tags:
- reviews are processed concurrently by a worker pool
- each batch is committed on its own; Ctrl-C keeps finished batches
- a review that fails is logged and left pending

Example:
  restomaps annotate
  restomaps annotate --restaurant-id 3 --force
  restomaps annotate --limit 1000
  restomaps annotate --batch-size 500 --workers 8 --no-cache`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().BoolVar(&annotateForce, "force", false, "reprocess reviews that already have a verdict")
	annotateCmd.Flags().Int64Var(&annotateRestaurant, "restaurant-id", 0, "only annotate reviews of this restaurant (row id)")
	annotateCmd.Flags().IntVar(&annotateLimit, "limit", 0, "annotate at most this many reviews (0 for all)")
	annotateCmd.Flags().IntVar(&annotateBatchSize, "batch-size", 0, "reviews committed per transaction (default from config)")
	annotateCmd.Flags().IntVar(&annotateWorkers, "workers", 0, "number of concurrent workers (default from config)")
	annotateCmd.Flags().BoolVar(&annotateNoCache, "no-cache", false, "disable the annotation cache")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *appConfig
	if annotateNoCache {
		cfg.Cache.Enabled = false
	}

	if annotateLimit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", annotateLimit)
	}

	p, closeStore, err := openPipeline(&cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Restomaps Annotation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Database:     %s\n", cfg.Store.Path)
	if annotateRestaurant != 0 {
		fmt.Fprintf(os.Stderr, "  Restaurant:   %d\n", annotateRestaurant)
	}
	if annotateLimit > 0 {
		fmt.Fprintf(os.Stderr, "  Limit:        %d\n", annotateLimit)
	}
	fmt.Fprintf(os.Stderr, "  Force:        %v\n", annotateForce)
	fmt.Fprintf(os.Stderr, "  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(os.Stderr, "\n")

	summary, err := p.Annotate(ctx, pipeline.AnnotateOptions{
		RestaurantID: annotateRestaurant,
		Force:        annotateForce,
		Limit:        annotateLimit,
		BatchSize:    annotateBatchSize,
		Workers:      annotateWorkers,
		Progress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\r  Processed:    %d/%d", done, total)
		},
	})
	if summary != nil && summary.Selected > 0 {
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && summary != nil {
			fmt.Fprintf(os.Stderr, "\n⚠ Interrupted after %d reviews; run again to continue\n", summary.Processed)
		}
		return fmt.Errorf("annotate: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "✓ Annotated %d of %d reviews in %v\n", summary.Processed, summary.Selected, summary.Duration.Round(time.Millisecond))
	if summary.Errors > 0 {
		fmt.Fprintf(os.Stderr, "⚠ %d reviews failed (see log)\n", summary.Errors)
	}
	if cfg.Cache.Enabled && verbose {
		cs := p.CacheStats()
		fmt.Fprintf(os.Stderr, "  Cache hits:   %d/%d (%.0f%%)\n", cs.Hits, cs.Hits+cs.Misses, cs.HitRate()*100)
	}

	stats, err := p.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\n")
	printStats(cmd.OutOrStdout(), stats)
	return nil
}
