package repositories

import (
	"context"
	"errors"

	"github.com/openeire/openeire-api/app/models"
	"gorm.io/gorm"
)

type ProfileRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.UserProfile, error)
	UpdateDefaults(ctx context.Context, profile *models.UserProfile) error
}

type gormProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) FindByUsername(ctx context.Context, username string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormProfileRepository) UpdateDefaults(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Model(&models.UserProfile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"default_phone_number":    profile.DefaultPhoneNumber,
		"default_street_address1": profile.DefaultStreetAddress1,
		"default_street_address2": profile.DefaultStreetAddress2,
		"default_town":            profile.DefaultTown,
		"default_county":          profile.DefaultCounty,
		"default_postcode":        profile.DefaultPostcode,
		"default_country":         profile.DefaultCountry,
	}).Error
}
