package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Column widths of the address fields shared by Order and UserProfile.
const (
	NameMaxLen     = 150
	PhoneMaxLen    = 20
	StreetMaxLen   = 255
	TownMaxLen     = 100
	CountyMaxLen   = 100
	PostcodeMaxLen = 20
)

type FulfillmentStatus string

const (
	FulfillmentNotRequired FulfillmentStatus = "not_required"
	FulfillmentPending     FulfillmentStatus = "pending"
	FulfillmentSubmitted   FulfillmentStatus = "submitted"
	FulfillmentFailed      FulfillmentStatus = "failed"
)

type Order struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrderNumber    string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	UserProfileID  *uint          `gorm:"index" json:"-"`
	FullName       string         `gorm:"type:varchar(150)" json:"full_name"`
	Email          string         `gorm:"type:varchar(254);not null" json:"email"`
	PhoneNumber    string         `gorm:"type:varchar(20)" json:"phone_number"`
	StreetAddress1 string         `gorm:"type:varchar(255)" json:"street_address1"`
	StreetAddress2 string         `gorm:"type:varchar(255)" json:"street_address2"`
	Town           string         `gorm:"type:varchar(100)" json:"town"`
	County         string         `gorm:"type:varchar(100)" json:"county"`
	Postcode       string         `gorm:"type:varchar(20)" json:"postcode"`
	Country        string         `gorm:"type:varchar(2)" json:"country"`
	ShippingMethod ShippingMethod `gorm:"type:varchar(20);not null" json:"shipping_method"`
	Date           time.Time      `gorm:"not null;index" json:"date"`

	DeliveryCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_cost"`
	OrderTotal   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"order_total"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`

	PaymentIntentID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"payment_intent_id"`

	FulfillmentStatus    FulfillmentStatus `gorm:"type:varchar(20);not null" json:"fulfillment_status"`
	FulfillmentReference string            `gorm:"type:varchar(100)" json:"fulfillment_reference,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrderNumber returns an opaque, non-sequential order number.
func NewOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}

func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber()
	}
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	if o.ShippingMethod == "" {
		o.ShippingMethod = ShippingBudget
	}
	o.TotalPrice = o.OrderTotal.Add(o.DeliveryCost)
	o.fitAddress()
	return
}

// fitAddress clips processor-supplied address data to the column widths so
// strict-mode inserts never fail on a long line.
func (o *Order) fitAddress() {
	o.FullName = Clip(o.FullName, NameMaxLen)
	o.PhoneNumber = Clip(o.PhoneNumber, PhoneMaxLen)
	o.StreetAddress1 = Clip(o.StreetAddress1, StreetMaxLen)
	o.StreetAddress2 = Clip(o.StreetAddress2, StreetMaxLen)
	o.Town = Clip(o.Town, TownMaxLen)
	o.County = Clip(o.County, CountyMaxLen)
	o.Postcode = Clip(o.Postcode, PostcodeMaxLen)
}

// Clip shortens s to at most n runes.
func Clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func (o *Order) HasPhysicalItems() bool {
	for _, item := range o.Items {
		if item.ProductType.IsPhysical() {
			return true
		}
	}
	return false
}
