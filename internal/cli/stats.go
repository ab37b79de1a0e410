package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/model"
	"github.com/spf13/cobra"
)

var (
	statsRestaurant int64
	statsJSON       bool
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review and annotation statistics",
	Long: `Stats reports how many reviews are stored, how many carry text, how
many are annotated and how the verdicts are distributed.

With --restaurant-id it reports the rating statistics of one restaurant
instead: review count, average star rating, rating distribution and reviews
from the last 30 days.

Example:
  restomaps stats
  restomaps stats --restaurant-id 3 --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Int64Var(&statsRestaurant, "restaurant-id", 0, "report rating statistics for one restaurant (row id)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON instead of text")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, closeStore, err := openPipeline(appConfig)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()

	if statsRestaurant != 0 {
		rs, err := p.RestaurantStats(ctx, statsRestaurant)
		if err != nil {
			return fmt.Errorf("restaurant %d: %w", statsRestaurant, err)
		}
		if statsJSON {
			return writeJSON(out, rs)
		}
		printRestaurantStats(out, statsRestaurant, rs)
		return nil
	}

	stats, err := p.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	if statsJSON {
		return writeJSON(out, struct {
			*model.Stats
			Unprocessed int `json:"unprocessed"`
		}{stats, stats.Unprocessed()})
	}
	printStats(out, stats)
	return nil
}

func printStats(w io.Writer, s *model.Stats) {
	fmt.Fprintf(w, "Reviews:       %d\n", s.Total)
	fmt.Fprintf(w, "With text:     %d\n", s.WithText)
	fmt.Fprintf(w, "Processed:     %d\n", s.Processed)
	fmt.Fprintf(w, "Unprocessed:   %d\n", s.Unprocessed())

	if len(s.Verdicts) == 0 {
		return
	}
	fmt.Fprintf(w, "\nVerdicts:\n")
	for _, vc := range s.Verdicts {
		label := vc.Verdict
		if v := annotate.Verdict(vc.Verdict); v.Valid() {
			label = fmt.Sprintf("%s (%s)", vc.Verdict, v.English())
		}
		fmt.Fprintf(w, "  %-60s %d\n", label, vc.Count)
	}
}

func printRestaurantStats(w io.Writer, id int64, s *model.RestaurantStats) {
	fmt.Fprintf(w, "Restaurant:    %d\n", id)
	fmt.Fprintf(w, "Reviews:       %d\n", s.TotalReviews)
	fmt.Fprintf(w, "Avg rating:    %.2f\n", s.AverageRating)
	fmt.Fprintf(w, "Last 30 days:  %d\n", s.RecentReviews)

	if len(s.RatingDistribution) == 0 {
		return
	}
	stars := make([]int, 0, len(s.RatingDistribution))
	for star := range s.RatingDistribution {
		stars = append(stars, star)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(stars)))

	fmt.Fprintf(w, "\nRatings:\n")
	for _, star := range stars {
		fmt.Fprintf(w, "  %d★  %d\n", star, s.RatingDistribution[star])
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
