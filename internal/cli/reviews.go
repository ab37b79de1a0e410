package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/model"
	"github.com/spf13/cobra"
)

var (
	reviewsRestaurant int64
	reviewsOffset     int
	reviewsLimit      int
	reviewsJSON       bool
)

// reviewsCmd represents the reviews command
var reviewsCmd = &cobra.Command{
	Use:   "reviews [review-id]",
	Short: "Show stored reviews and their annotations",
	Long: `Reviews lists one restaurant's stored reviews, newest first, with the
verdict and tags of those already annotated. Given a review id it shows that
single review instead.

Example:
  restomaps reviews --restaurant-id 3
  restomaps reviews --restaurant-id 3 --offset 50 --limit 50 --json
  restomaps reviews 1207`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReviews,
}

func init() {
	rootCmd.AddCommand(reviewsCmd)

	reviewsCmd.Flags().Int64Var(&reviewsRestaurant, "restaurant-id", 0, "restaurant whose reviews to list (row id)")
	reviewsCmd.Flags().IntVar(&reviewsOffset, "offset", 0, "number of reviews to skip")
	reviewsCmd.Flags().IntVar(&reviewsLimit, "limit", 50, "maximum number of reviews to show")
	reviewsCmd.Flags().BoolVar(&reviewsJSON, "json", false, "print JSON instead of text")
}

func runReviews(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var reviewID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid review id %q", args[0])
		}
		reviewID = id
	} else if reviewsRestaurant == 0 {
		return fmt.Errorf("either a review id or --restaurant-id is required")
	}
	if reviewsOffset < 0 || reviewsLimit < 0 {
		return fmt.Errorf("--offset and --limit must not be negative")
	}

	p, closeStore, err := openPipeline(appConfig)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()

	if reviewID != 0 {
		r, err := p.Review(ctx, reviewID)
		if err != nil {
			return err
		}
		if reviewsJSON {
			return writeJSON(out, r)
		}
		printReview(out, *r)
		return nil
	}

	reviews, err := p.Reviews(ctx, reviewsRestaurant, reviewsOffset, reviewsLimit)
	if err != nil {
		return fmt.Errorf("restaurant %d: %w", reviewsRestaurant, err)
	}
	if reviewsJSON {
		return writeJSON(out, reviews)
	}
	if len(reviews) == 0 {
		fmt.Fprintf(out, "No reviews\n")
		return nil
	}
	for i, r := range reviews {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printReview(out, r)
	}
	return nil
}

func printReview(w io.Writer, r model.Review) {
	header := []string{fmt.Sprintf("#%d", r.ID)}
	if r.Rating != nil {
		header = append(header, fmt.Sprintf("%d★", *r.Rating))
	}
	if r.OriginalDate != nil {
		header = append(header, r.OriginalDate.Format("2006-01-02"))
	}
	if r.Author != "" {
		header = append(header, r.Author)
	}
	fmt.Fprintln(w, strings.Join(header, "  "))

	if r.Text != "" {
		fmt.Fprintf(w, "  %s\n", r.Text)
	}
	if !r.Processed() {
		fmt.Fprintf(w, "  (not annotated)\n")
		return
	}

	verdict := r.Verdict
	if v := annotate.Verdict(r.Verdict); v.Valid() {
		verdict = fmt.Sprintf("%s (%s)", r.Verdict, v.English())
	}
	fmt.Fprintf(w, "  → %s", verdict)
	if r.SentimentScore != nil {
		fmt.Fprintf(w, ", score %.2f", *r.SentimentScore)
	}
	fmt.Fprintln(w)
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "  Tags: %s\n", strings.Join(r.Tags, ", "))
	}
}
