package models

import (
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// Price defines the structure for monetary values.
type Price struct {
	Amount       float64 `bson:"amount" json:"amount"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// ListingLocation is the normalized location resolved by the geocoding
// provider on submission. The core stores the tuple; it never geocodes.
type ListingLocation struct {
	Address     string   `bson:"address" json:"address"`
	Region      string   `bson:"region" json:"region"`
	City        string   `bson:"city" json:"city"`
	SubLocality string   `bson:"sub_locality,omitempty" json:"sub_locality,omitempty"`
	Point       *GeoJSON `bson:"point,omitempty" json:"point,omitempty"`
}

// CondominiumDetails are the attributes specific to condominium listings.
type CondominiumDetails struct {
	FloorArea     float64 `bson:"floor_area" json:"floor_area"`
	Bedrooms      int     `bson:"bedrooms" json:"bedrooms"`
	Bathrooms     int     `bson:"bathrooms" json:"bathrooms"`
	ParkingSpaces int     `bson:"parking_spaces" json:"parking_spaces"`
}

// HouseAndLotDetails add lot size on top of the condominium attributes.
type HouseAndLotDetails struct {
	FloorArea     float64 `bson:"floor_area" json:"floor_area"`
	LotArea       float64 `bson:"lot_area" json:"lot_area"`
	Bedrooms      int     `bson:"bedrooms" json:"bedrooms"`
	Bathrooms     int     `bson:"bathrooms" json:"bathrooms"`
	ParkingSpaces int     `bson:"parking_spaces" json:"parking_spaces"`
}

// WarehouseDetails describe industrial space.
type WarehouseDetails struct {
	LotArea       float64 `bson:"lot_area" json:"lot_area"`
	FloorArea     float64 `bson:"floor_area" json:"floor_area"`
	BuildingArea  float64 `bson:"building_area" json:"building_area"`
	CeilingHeight float64 `bson:"ceiling_height" json:"ceiling_height"`
}

// VacantLotDetails carry lot size only.
type VacantLotDetails struct {
	LotArea float64 `bson:"lot_area" json:"lot_area"`
}

// PropertyDetails is a tagged union: exactly one variant must be set and
// it must match the listing's property category. The union is embedded in
// the listing document so the aggregate writes atomically.
type PropertyDetails struct {
	Condominium *CondominiumDetails `bson:"condominium,omitempty" json:"condominium,omitempty"`
	HouseAndLot *HouseAndLotDetails `bson:"house_and_lot,omitempty" json:"house_and_lot,omitempty"`
	Warehouse   *WarehouseDetails   `bson:"warehouse,omitempty" json:"warehouse,omitempty"`
	VacantLot   *VacantLotDetails   `bson:"vacant_lot,omitempty" json:"vacant_lot,omitempty"`
}

// Validate enforces the exactly-one-matching-variant invariant.
func (d *PropertyDetails) Validate(category refdata.PropertyCategory) error {
	if d == nil {
		return apperrors.NewValidation("details", "property details are required")
	}
	set := 0
	var match bool
	if d.Condominium != nil {
		set++
		match = category == refdata.CategoryCondominium
	}
	if d.HouseAndLot != nil {
		set++
		match = category == refdata.CategoryHouseAndLot
	}
	if d.Warehouse != nil {
		set++
		match = category == refdata.CategoryWarehouse
	}
	if d.VacantLot != nil {
		set++
		match = category == refdata.CategoryVacantLot
	}
	if set == 0 {
		return apperrors.NewValidation("details", "property details are required")
	}
	if set > 1 {
		return apperrors.NewValidation("details", "exactly one detail variant must be set")
	}
	if !match {
		return apperrors.NewValidation("details", "detail variant does not match property category "+string(category))
	}
	return nil
}

// Bedrooms returns the bedroom count for categories that have one.
func (d *PropertyDetails) Bedrooms() (int, bool) {
	switch {
	case d.Condominium != nil:
		return d.Condominium.Bedrooms, true
	case d.HouseAndLot != nil:
		return d.HouseAndLot.Bedrooms, true
	}
	return 0, false
}

// Listing is the central aggregate: a property advertisement owned by a
// user, with its category-specific details embedded.
type Listing struct {
	Base      `bson:",inline"`
	UserID    primitive.ObjectID       `bson:"user_id" json:"user_id"`
	Mode      refdata.TransactionMode  `bson:"mode" json:"mode"`
	Category  refdata.PropertyCategory `bson:"category" json:"category"`
	Status    refdata.ListingStatus    `bson:"status" json:"status"`
	PaymentID *primitive.ObjectID      `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	Title     string                   `bson:"title" json:"title"`
	Body      string                   `bson:"body" json:"body"`
	Price     Price                    `bson:"price" json:"price"`
	Location  ListingLocation          `bson:"location" json:"location"`
	Details   PropertyDetails          `bson:"details" json:"details"`

	// SearchText is derived from title and body on every write; the text
	// index lives on this field, never on the raw columns.
	SearchText string `bson:"search_text" json:"-"`

	// ImageCount is denormalized from listing_images and maintained in
	// the same update as each image write, so activation guards can check
	// it atomically.
	ImageCount int `bson:"image_count" json:"image_count"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	ActivatedAt *time.Time `bson:"activated_at,omitempty" json:"activated_at,omitempty"`
}

// Unpaid reports whether the listing counts against the owner's quota
// when Active.
func (l *Listing) Unpaid() bool { return l.PaymentID == nil }

// BuildSearchText derives the tokenized search vector from free text.
// Lowercased, punctuation stripped, duplicate tokens removed while
// preserving first-occurrence order.
func BuildSearchText(parts ...string) string {
	seen := make(map[string]bool)
	var tokens []string
	for _, part := range parts {
		fields := strings.FieldsFunc(strings.ToLower(part), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, tok := range fields {
			if !seen[tok] {
				seen[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	return strings.Join(tokens, " ")
}

// ListingImage is an ordered attachment to a listing. Positions are
// zero-based and contiguous per listing; a unique (listing_id, position)
// index keeps ordering stable and queryable.
type ListingImage struct {
	Base      `bson:",inline"`
	ListingID primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	Key       string             `bson:"key" json:"key"` // S3 object key
	Position  int                `bson:"position" json:"position"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
