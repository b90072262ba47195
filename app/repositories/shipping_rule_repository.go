package repositories

import (
	"context"
	"errors"

	"github.com/openeire/openeire-api/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShippingRuleRepository interface {
	FindRule(ctx context.Context, templateID uint, country string, method models.ShippingMethod) (*models.ShippingRule, error)
	Upsert(ctx context.Context, rule *models.ShippingRule) error
}

type gormShippingRuleRepository struct {
	db *gorm.DB
}

func NewShippingRuleRepository(db *gorm.DB) ShippingRuleRepository {
	return &gormShippingRuleRepository{db: db}
}

func (r *gormShippingRuleRepository) FindRule(ctx context.Context, templateID uint, country string, method models.ShippingMethod) (*models.ShippingRule, error) {
	var rule models.ShippingRule
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND country = ? AND method = ?", templateID, country, method).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *gormShippingRuleRepository) Upsert(ctx context.Context, rule *models.ShippingRule) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "country"}, {Name: "method"}},
		DoUpdates: clause.AssignmentColumns([]string{"cost", "updated_at"}),
	}).Create(rule).Error
}
