package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// SampleDestinations is the starter destination set loaded by Seed.
var SampleDestinations = []Destination{
	{
		DestinationID:  "tokyo_japan",
		Name:           "Tokyo",
		Country:        "Japan",
		Region:         "East Asia",
		Category:       "city",
		Description:    "Modern metropolis with rich cultural heritage, amazing food, and cutting-edge technology",
		AvgTemperature: 15.5,
		BestSeason:     "spring",
		BudgetCategory: "mid_range",
	},
	{
		DestinationID:  "paris_france",
		Name:           "Paris",
		Country:        "France",
		Region:         "Western Europe",
		Category:       "cultural",
		Description:    "City of Light, famous for art, fashion, gastronomy, and culture",
		AvgTemperature: 12.0,
		BestSeason:     "spring",
		BudgetCategory: "luxury",
	},
	{
		DestinationID:  "bali_indonesia",
		Name:           "Bali",
		Country:        "Indonesia",
		Region:         "Southeast Asia",
		Category:       "beach",
		Description:    "Tropical paradise with beautiful beaches, temples, and rice terraces",
		AvgTemperature: 26.0,
		BestSeason:     "dry_season",
		BudgetCategory: "budget",
	},
	{
		DestinationID:  "swiss_alps",
		Name:           "Swiss Alps",
		Country:        "Switzerland",
		Region:         "Central Europe",
		Category:       "mountain",
		Description:    "Stunning mountain scenery, world-class skiing, and charming alpine villages",
		AvgTemperature: 2.0,
		BestSeason:     "winter",
		BudgetCategory: "luxury",
	},
	{
		DestinationID:  "thailand_beaches",
		Name:           "Thai Beaches",
		Country:        "Thailand",
		Region:         "Southeast Asia",
		Category:       "beach",
		Description:    "Crystal clear waters, white sand beaches, and vibrant marine life",
		AvgTemperature: 28.0,
		BestSeason:     "cool_season",
		BudgetCategory: "budget",
	},
}

// Seed inserts the sample destinations.
func (s *Service) Seed(ctx context.Context) error {
	for _, dest := range SampleDestinations {
		query := s.client.Query(fmt.Sprintf(`
			INSERT INTO %s
			(destination_id, name, country, region, category, description, avg_temperature, best_season, budget_category)
			VALUES (@destination_id, @name, @country, @region, @category, @description, @avg_temperature, @best_season, @budget_category)`,
			s.tableRef("destinations")))
		query.Parameters = []bigquery.QueryParameter{
			{Name: "destination_id", Value: dest.DestinationID},
			{Name: "name", Value: dest.Name},
			{Name: "country", Value: dest.Country},
			{Name: "region", Value: dest.Region},
			{Name: "category", Value: dest.Category},
			{Name: "description", Value: dest.Description},
			{Name: "avg_temperature", Value: dest.AvgTemperature},
			{Name: "best_season", Value: dest.BestSeason},
			{Name: "budget_category", Value: dest.BudgetCategory},
		}

		job, err := query.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed destination %s: %w", dest.DestinationID, err)
		}
		status, err := job.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed destination %s: %w", dest.DestinationID, err)
		}
		if err := status.Err(); err != nil {
			return fmt.Errorf("failed to seed destination %s: %w", dest.DestinationID, err)
		}
	}

	s.logger.InfoContext(ctx, "seeded sample destinations", "count", len(SampleDestinations))
	return nil
}

// Initialize ensures the dataset and tables exist and loads sample data.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.EnsureDataset(ctx); err != nil {
		return err
	}
	if err := s.EnsureTables(ctx); err != nil {
		return err
	}
	return s.Seed(ctx)
}
