package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openeire/openeire-api/app/models"
	"github.com/openeire/openeire-api/app/repositories"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrVariantExists = errors.New("variant already exists for this photo, material and size")

type CatalogService struct {
	db      *gorm.DB
	catalog repositories.CatalogRepository
}

func NewCatalogService(db *gorm.DB, catalog repositories.CatalogRepository) *CatalogService {
	return &CatalogService{db: db, catalog: catalog}
}

// CreatePhoto stores the photo and one print variant per active template.
// Either everything is written or nothing is.
func (s *CatalogService) CreatePhoto(ctx context.Context, photo *models.Photo) ([]models.ProductVariant, error) {
	templates, err := s.catalog.GetActiveTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	var variants []models.ProductVariant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.catalog.CreatePhoto(ctx, tx, photo); err != nil {
			return fmt.Errorf("failed to create photo: %w", err)
		}
		variants = BuildVariantsForPhoto(photo, templates)
		if err := s.catalog.BulkCreateVariants(ctx, tx, variants); err != nil {
			return fmt.Errorf("failed to create variants: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("title", photo.Title).Msg("CatalogService: photo creation rolled back")
		return nil, err
	}

	log.Info().Uint("photo_id", photo.ID).Int("variants", len(variants)).Msg("CatalogService: photo created")
	return variants, nil
}

// CreateVariant adds a single print variant outside the automatic fan-out.
func (s *CatalogService) CreateVariant(ctx context.Context, photoID uint, material models.Material, size models.Size) (*models.ProductVariant, error) {
	if !material.Valid() || !size.Valid() {
		return nil, fmt.Errorf("%w: unsupported material %q or size %q", ErrCartValidation, material, size)
	}

	photo, err := s.catalog.FindPhotoByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photo %d: %w", photoID, err)
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: photo %d", ErrProductNotFound, photoID)
	}

	existing, err := s.catalog.FindVariantByPhotoMaterialSize(ctx, photoID, material, size)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrVariantExists
	}

	template, err := s.catalog.FindTemplateByMaterialSize(ctx, material, size)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("%w: no template for %s %s", ErrProductNotFound, material, size)
	}

	variant := newVariant(photo, *template)
	if err := s.catalog.CreateVariant(ctx, s.db, &variant); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrVariantExists
		}
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}
	return &variant, nil
}

func BuildVariantsForPhoto(photo *models.Photo, templates []models.ProductTemplate) []models.ProductVariant {
	variants := make([]models.ProductVariant, 0, len(templates))
	for _, t := range templates {
		if !t.IsActive {
			continue
		}
		variants = append(variants, newVariant(photo, t))
	}
	return variants
}

func newVariant(photo *models.Photo, t models.ProductTemplate) models.ProductVariant {
	return models.ProductVariant{
		PhotoID:     photo.ID,
		Material:    t.Material,
		Size:        t.Size,
		Price:       t.RetailPrice(),
		InternalSKU: models.InternalVariantSKU(photo.ID, t.SKUSuffix),
		ExternalSKU: t.ExternalSKU,
		IsActive:    true,
	}
}
