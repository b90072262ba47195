package repositories

import (
	"context"
	"errors"

	"github.com/openeire/openeire-api/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	FindPhotoByID(ctx context.Context, id uint) (*models.Photo, error)
	FindVideoByID(ctx context.Context, id uint) (*models.Video, error)
	FindVariantByID(ctx context.Context, id uint) (*models.ProductVariant, error)
	FindVariantByPhotoMaterialSize(ctx context.Context, photoID uint, material models.Material, size models.Size) (*models.ProductVariant, error)
	FindTemplateByMaterialSize(ctx context.Context, material models.Material, size models.Size) (*models.ProductTemplate, error)
	GetActiveTemplates(ctx context.Context) ([]models.ProductTemplate, error)

	CreatePhoto(ctx context.Context, tx *gorm.DB, photo *models.Photo) error
	CreateVariant(ctx context.Context, tx *gorm.DB, variant *models.ProductVariant) error
	BulkCreateVariants(ctx context.Context, tx *gorm.DB, variants []models.ProductVariant) error
	UpsertTemplate(ctx context.Context, template *models.ProductTemplate) error
}

type gormCatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &gormCatalogRepository{db: db}
}

func (r *gormCatalogRepository) FindPhotoByID(ctx context.Context, id uint) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &photo, nil
}

func (r *gormCatalogRepository) FindVideoByID(ctx context.Context, id uint) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).First(&video, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &video, nil
}

func (r *gormCatalogRepository) FindVariantByID(ctx context.Context, id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Preload("Photo").First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *gormCatalogRepository) FindVariantByPhotoMaterialSize(ctx context.Context, photoID uint, material models.Material, size models.Size) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("photo_id = ? AND material = ? AND size = ?", photoID, material, size).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *gormCatalogRepository) FindTemplateByMaterialSize(ctx context.Context, material models.Material, size models.Size) (*models.ProductTemplate, error) {
	var template models.ProductTemplate
	err := r.db.WithContext(ctx).
		Where("material = ? AND size = ?", material, size).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *gormCatalogRepository) GetActiveTemplates(ctx context.Context) ([]models.ProductTemplate, error) {
	var templates []models.ProductTemplate
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("material ASC, size ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *gormCatalogRepository) CreatePhoto(ctx context.Context, tx *gorm.DB, photo *models.Photo) error {
	return tx.WithContext(ctx).Create(photo).Error
}

func (r *gormCatalogRepository) CreateVariant(ctx context.Context, tx *gorm.DB, variant *models.ProductVariant) error {
	return tx.WithContext(ctx).Create(variant).Error
}

func (r *gormCatalogRepository) BulkCreateVariants(ctx context.Context, tx *gorm.DB, variants []models.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&variants).Error
}

// UpsertTemplate only updates cost, external SKU and the active flag on conflict.
func (r *gormCatalogRepository) UpsertTemplate(ctx context.Context, template *models.ProductTemplate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "material"}, {Name: "size"}},
		DoUpdates: clause.AssignmentColumns([]string{"production_cost", "external_sku", "is_active", "updated_at"}),
	}).Create(template).Error
}
