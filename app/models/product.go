package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	KindDigitalPhoto    ProductKind = "digital_photo"
	KindDigitalVideo    ProductKind = "digital_video"
	KindPhysicalVariant ProductKind = "physical_variant"
)

var productKindAliases = map[string]ProductKind{
	"digital_photo":    KindDigitalPhoto,
	"photo":            KindDigitalPhoto,
	"digital_video":    KindDigitalVideo,
	"video":            KindDigitalVideo,
	"physical_variant": KindPhysicalVariant,
	"physical":         KindPhysicalVariant,
}

// ParseProductKind accepts the canonical kinds and the short names older clients send.
func ParseProductKind(s string) (ProductKind, bool) {
	kind, ok := productKindAliases[strings.ToLower(strings.TrimSpace(s))]
	return kind, ok
}

func (k ProductKind) IsPhysical() bool {
	return k == KindPhysicalVariant
}

// ProductRef points at one purchasable instance regardless of its table.
type ProductRef struct {
	Kind ProductKind `json:"type"`
	ID   uint        `json:"id"`
}

const (
	LicenseHD = "hd"
	License4K = "4k"
)

type Photo struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Title        string          `gorm:"type:varchar(254);not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	PreviewImage string          `gorm:"type:varchar(255)" json:"preview_image"`
	HighResFile  string          `gorm:"type:varchar(255);not null" json:"-"`
	PriceHD      decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price_hd"`
	Price4K      decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price_4k"`
	Tags         string          `gorm:"type:varchar(254)" json:"tags"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PriceForLicense returns the price of the tier and the tier actually applied.
// Unknown tiers are priced as HD.
func (p *Photo) PriceForLicense(license string) (decimal.Decimal, string) {
	return licensePrice(p.PriceHD, p.Price4K, license)
}

type Video struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Title          string          `gorm:"type:varchar(254);not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	ThumbnailImage string          `gorm:"type:varchar(255)" json:"thumbnail_image"`
	VideoFile      string          `gorm:"type:varchar(255);not null" json:"-"`
	PriceHD        decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price_hd"`
	Price4K        decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price_4k"`
	Tags           string          `gorm:"type:varchar(254)" json:"tags"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (v *Video) PriceForLicense(license string) (decimal.Decimal, string) {
	return licensePrice(v.PriceHD, v.Price4K, license)
}

func licensePrice(hd, uhd decimal.Decimal, license string) (decimal.Decimal, string) {
	if strings.ToLower(strings.TrimSpace(license)) == License4K {
		return uhd, License4K
	}
	return hd, LicenseHD
}

// IsKnownLicense reports whether the tier names a priced license. Empty means the default.
func IsKnownLicense(license string) bool {
	switch strings.ToLower(strings.TrimSpace(license)) {
	case "", LicenseHD, License4K:
		return true
	}
	return false
}
