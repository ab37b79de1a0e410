package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ppiankov/restomaps/internal/model"
	"github.com/spf13/cobra"
)

var (
	restaurantsTimeout time.Duration
	restaurantsJSON    bool
)

// restaurantsCmd represents the restaurants command
var restaurantsCmd = &cobra.Command{
	Use:   "restaurants",
	Short: "Manage the restaurant catalog",
	Long: `Restaurants loads restaurant details from a YAML catalog and shows
stored restaurants.

Review dumps only carry a restaurant id and name. A catalog adds the place
type, city, address, coordinates, maps link and visited flag:

  restaurants:
    - external_id: "101"
      name: Пельменная
      place_type: кафе
      city: Москва
      maps_url: https://yandex.ru/maps/org/101/
      latitude: 55.75
      longitude: 37.61
      visited: true`,
}

var restaurantsImportCmd = &cobra.Command{
	Use:   "import <file|url>",
	Short: "Upsert restaurants from a YAML catalog",
	Long: `Import upserts every catalog entry by its external_id. An existing
restaurant keeps its row id, so reviews already stored stay attached.

Example:
  restomaps restaurants import restaurants.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), restaurantsTimeout)
		defer cancel()

		p, closeStore, err := openPipeline(appConfig)
		if err != nil {
			return err
		}
		defer closeStore()

		ids, err := p.ImportRestaurants(ctx, args[0])
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d restaurants\n", args[0], len(ids))
		return nil
	},
}

var restaurantsShowCmd = &cobra.Command{
	Use:   "show <restaurant-id>",
	Short: "Show one stored restaurant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid restaurant id %q", args[0])
		}

		p, closeStore, err := openPipeline(appConfig)
		if err != nil {
			return err
		}
		defer closeStore()

		r, err := p.Restaurant(cmd.Context(), id)
		if err != nil {
			return err
		}
		if restaurantsJSON {
			return writeJSON(cmd.OutOrStdout(), r)
		}
		printRestaurant(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restaurantsCmd)
	restaurantsCmd.AddCommand(restaurantsImportCmd)
	restaurantsCmd.AddCommand(restaurantsShowCmd)

	restaurantsImportCmd.Flags().DurationVar(&restaurantsTimeout, "timeout", 10*time.Minute, "total timeout for the import")
	restaurantsShowCmd.Flags().BoolVar(&restaurantsJSON, "json", false, "print JSON instead of text")
}

func printRestaurant(w io.Writer, r *model.Restaurant) {
	fmt.Fprintf(w, "Restaurant:    %d (%s)\n", r.ID, r.ExternalID)
	fmt.Fprintf(w, "Name:          %s\n", r.Name)
	if r.PlaceType != "" {
		fmt.Fprintf(w, "Type:          %s\n", r.PlaceType)
	}
	if r.City != "" {
		fmt.Fprintf(w, "City:          %s\n", r.City)
	}
	if r.Address != "" {
		fmt.Fprintf(w, "Address:       %s\n", r.Address)
	}
	if r.Latitude != nil && r.Longitude != nil {
		fmt.Fprintf(w, "Location:      %.6f, %.6f\n", *r.Latitude, *r.Longitude)
	}
	if r.MapsURL != "" {
		fmt.Fprintf(w, "Maps:          %s\n", r.MapsURL)
	}
	if r.MapsRating != nil {
		fmt.Fprintf(w, "Rating:        %.2f\n", *r.MapsRating)
	}
	fmt.Fprintf(w, "Visited:       %v\n", r.Visited)
}
