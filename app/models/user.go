package models

import "time"

// UserProfile mirrors the account owned by the auth service, keyed by username,
// and keeps the address a customer chose to save at checkout.
type UserProfile struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Username              string    `gorm:"type:varchar(150);not null;uniqueIndex" json:"username"`
	Email                 string    `gorm:"type:varchar(254)" json:"email"`
	DefaultPhoneNumber    string    `gorm:"type:varchar(20)" json:"default_phone_number"`
	DefaultStreetAddress1 string    `gorm:"type:varchar(255)" json:"default_street_address1"`
	DefaultStreetAddress2 string    `gorm:"type:varchar(255)" json:"default_street_address2"`
	DefaultTown           string    `gorm:"type:varchar(100)" json:"default_town"`
	DefaultCounty         string    `gorm:"type:varchar(100)" json:"default_county"`
	DefaultPostcode       string    `gorm:"type:varchar(20)" json:"default_postcode"`
	DefaultCountry        string    `gorm:"type:varchar(2)" json:"default_country"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
