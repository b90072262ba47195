package migrations

import (
	"github.com/openeire/openeire-api/app/models"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Photo{},
		&models.Video{},
		&models.ProductTemplate{},
		&models.ProductVariant{},
		&models.ShippingRule{},
		&models.UserProfile{},
		&models.Order{},
		&models.OrderItem{},
	)
}
