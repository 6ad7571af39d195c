package models

import "time"

// Product is a catalog item owned by a user.
type Product struct {
	ID               string
	OwnerID          string
	Title            string
	ShortDescription string
	IconURL          string
	Category         string
	ProductType      string
	Tags             []string
	ProductURL       string
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// OwnerName is the display name of the owning user, filled on listing.
	// Not a column of the products table.
	OwnerName string
}

// ProductUpdate carries the mutable product fields for partial updates.
// Nil pointers mean "leave unchanged".
type ProductUpdate struct {
	Title            *string
	ShortDescription *string
	IconURL          *string
	Category         *string
	ProductType      *string
	Tags             []string
	ProductURL       *string
}
