package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/openeire/openeire-api/app/models"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

type OrderRepository interface {
	// CreateOnce inserts the order and its items. When an order with the same
	// payment intent already exists it returns that order and created=false.
	CreateOnce(ctx context.Context, order *models.Order) (saved *models.Order, created bool, err error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByUserProfileID(ctx context.Context, profileID uint) ([]models.Order, error)
	UpdateFulfillment(ctx context.Context, orderNumber string, status models.FulfillmentStatus, reference string) error
}

type gormOrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db}
}

func (r *gormOrderRepository) CreateOnce(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err == nil {
		return order, true, nil
	}
	if !IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	existing, findErr := r.FindByPaymentIntentID(ctx, order.PaymentIntentID)
	if findErr != nil {
		return nil, false, fmt.Errorf("failed to load existing order for payment %s: %w", order.PaymentIntentID, findErr)
	}
	if existing == nil {
		return nil, false, fmt.Errorf("duplicate key on order insert for payment %s but no order found: %w", order.PaymentIntentID, err)
	}
	return existing, false, nil
}

func (r *gormOrderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "payment_intent_id = ?", paymentIntentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "order_number = ?", orderNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepository) FindByUserProfileID(ctx context.Context, profileID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_profile_id = ?", profileID).
		Order("date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *gormOrderRepository) UpdateFulfillment(ctx context.Context, orderNumber string, status models.FulfillmentStatus, reference string) error {
	updates := map[string]interface{}{
		"fulfillment_status": status,
		"updated_at":         time.Now(),
	}
	if reference != "" {
		updates["fulfillment_reference"] = reference
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", orderNumber).Updates(updates).Error
}

// IsDuplicateKeyError recognises unique constraint violations whether or not
// gorm error translation is enabled.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
