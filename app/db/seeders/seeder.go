package seeders

import (
	"context"
	"fmt"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/openeire/openeire-api/app/services"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type templateSeed struct {
	material    models.Material
	size        models.Size
	cost        string
	suffix      string
	externalSKU string
}

var templateSeeds = []templateSeed{
	{models.MaterialCanvas, models.SizeA4, "18.00", "CAN-A4", "GLOBAL-CAN-A4"},
	{models.MaterialCanvas, models.SizeA3, "24.00", "CAN-A3", "GLOBAL-CAN-A3"},
	{models.MaterialCanvas, models.SizeA2, "34.00", "CAN-A2", "GLOBAL-CAN-A2"},
	{models.MaterialFramed, models.SizeA4, "22.00", "FRA-A4", "GLOBAL-CFPM-A4"},
	{models.MaterialFramed, models.SizeA3, "30.00", "FRA-A3", "GLOBAL-CFPM-A3"},
	{models.MaterialFramed, models.SizeA2, "44.00", "FRA-A2", "GLOBAL-CFPM-A2"},
}

// Per-unit shipping by size, country and method.
var shippingSeeds = map[models.Size]map[string]map[models.ShippingMethod]string{
	models.SizeA4: {
		"IE": {models.ShippingBudget: "5.00", models.ShippingStandard: "7.50", models.ShippingExpress: "15.00"},
		"US": {models.ShippingBudget: "9.00", models.ShippingStandard: "12.00", models.ShippingExpress: "25.00"},
	},
	models.SizeA3: {
		"IE": {models.ShippingBudget: "6.50", models.ShippingStandard: "9.00", models.ShippingExpress: "18.00"},
		"US": {models.ShippingBudget: "11.00", models.ShippingStandard: "15.00", models.ShippingExpress: "29.00"},
	},
	models.SizeA2: {
		"IE": {models.ShippingBudget: "8.00", models.ShippingStandard: "11.00", models.ShippingExpress: "22.00"},
		"US": {models.ShippingBudget: "14.00", models.ShippingStandard: "19.00", models.ShippingExpress: "35.00"},
	},
}

var photoSeeds = []models.Photo{
	{
		Title:        "Cliffs of Moher at Dusk",
		Description:  "Atlantic light over the cliffs, shot from Hag's Head.",
		PreviewImage: "/media/previews/cliffs-of-moher.jpg",
		HighResFile:  "/media/photos/cliffs-of-moher.tif",
		PriceHD:      decimal.RequireFromString("10.00"),
		Price4K:      decimal.RequireFromString("20.00"),
		Tags:         "clare,coast,sunset",
		IsActive:     true,
	},
	{
		Title:        "Ha'penny Bridge in Fog",
		Description:  "Early morning on the Liffey.",
		PreviewImage: "/media/previews/hapenny-bridge.jpg",
		HighResFile:  "/media/photos/hapenny-bridge.tif",
		PriceHD:      decimal.RequireFromString("8.00"),
		Price4K:      decimal.RequireFromString("16.00"),
		Tags:         "dublin,city,fog",
		IsActive:     true,
	},
}

var videoSeeds = []models.Video{
	{
		Title:          "Skellig Michael Drone Pass",
		Description:    "A single pass over the island at sunrise.",
		ThumbnailImage: "/media/thumbnails/skellig.jpg",
		VideoFile:      "/media/videos/skellig.mp4",
		PriceHD:        decimal.RequireFromString("25.00"),
		Price4K:        decimal.RequireFromString("45.00"),
		Tags:           "kerry,drone,island",
		IsActive:       true,
	},
}

// DBSeed is safe to run repeatedly for templates and rules. Sample media is
// only created when the catalog is empty.
func DBSeed(ctx context.Context, db *gorm.DB) error {
	catalog := repositories.NewCatalogRepository(db)
	rules := repositories.NewShippingRuleRepository(db)

	templates, err := seedTemplates(ctx, catalog)
	if err != nil {
		return err
	}
	if err := seedShippingRules(ctx, rules, templates); err != nil {
		return err
	}
	return seedMedia(ctx, db, catalog)
}

func seedTemplates(ctx context.Context, catalog repositories.CatalogRepository) ([]models.ProductTemplate, error) {
	for _, s := range templateSeeds {
		template := &models.ProductTemplate{
			Material:       s.material,
			Size:           s.size,
			ProductionCost: decimal.RequireFromString(s.cost),
			SKUSuffix:      s.suffix,
			ExternalSKU:    s.externalSKU,
			IsActive:       true,
		}
		if err := catalog.UpsertTemplate(ctx, template); err != nil {
			return nil, fmt.Errorf("failed to seed template %s %s: %w", s.material, s.size, err)
		}
	}

	templates, err := catalog.GetActiveTemplates(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("templates", len(templates)).Msg("Seeder: templates ready")
	return templates, nil
}

func seedShippingRules(ctx context.Context, rules repositories.ShippingRuleRepository, templates []models.ProductTemplate) error {
	count := 0
	for _, t := range templates {
		for country, methods := range shippingSeeds[t.Size] {
			for method, cost := range methods {
				rule := &models.ShippingRule{
					TemplateID: t.ID,
					Country:    country,
					Method:     method,
					Cost:       decimal.RequireFromString(cost),
				}
				if err := rules.Upsert(ctx, rule); err != nil {
					return fmt.Errorf("failed to seed shipping rule %s/%s/%s: %w", t.SKUSuffix, country, method, err)
				}
				count++
			}
		}
	}
	log.Info().Int("rules", count).Msg("Seeder: shipping rules ready")
	return nil
}

func seedMedia(ctx context.Context, db *gorm.DB, catalog repositories.CatalogRepository) error {
	var existing int64
	if err := db.WithContext(ctx).Model(&models.Photo{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Info().Int64("photos", existing).Msg("Seeder: catalog already has photos, skipping sample media")
		return nil
	}

	catalogSvc := services.NewCatalogService(db, catalog)
	for i := range photoSeeds {
		photo := photoSeeds[i]
		if _, err := catalogSvc.CreatePhoto(ctx, &photo); err != nil {
			return fmt.Errorf("failed to seed photo %q: %w", photo.Title, err)
		}
	}

	videos := make([]models.Video, len(videoSeeds))
	copy(videos, videoSeeds)
	if err := db.WithContext(ctx).Create(&videos).Error; err != nil {
		return fmt.Errorf("failed to seed videos: %w", err)
	}

	log.Info().Int("photos", len(photoSeeds)).Int("videos", len(videos)).Msg("Seeder: sample media created")
	return nil
}
