// Package refdata holds the static lookup sets the rest of the system
// validates against: transaction modes, property categories and listing
// statuses, plus the allowed status-transition edges.
package refdata

// TransactionMode is the kind of deal a listing offers.
type TransactionMode string

const (
	ModeRent TransactionMode = "Rent"
	ModeBuy  TransactionMode = "Buy"
)

// PropertyCategory determines which detail variant a listing carries.
type PropertyCategory string

const (
	CategoryCondominium PropertyCategory = "Condominium"
	CategoryHouseAndLot PropertyCategory = "House and Lot"
	CategoryWarehouse   PropertyCategory = "Warehouse"
	CategoryVacantLot   PropertyCategory = "Vacant Lot"
)

// ListingStatus is a listing's lifecycle state.
type ListingStatus string

const (
	StatusDraft    ListingStatus = "Draft"
	StatusActive   ListingStatus = "Active"
	StatusPaused   ListingStatus = "Paused"
	StatusArchived ListingStatus = "Archived"
)

var transactionModes = map[TransactionMode]bool{
	ModeRent: true,
	ModeBuy:  true,
}

var propertyCategories = map[PropertyCategory]bool{
	CategoryCondominium: true,
	CategoryHouseAndLot: true,
	CategoryWarehouse:   true,
	CategoryVacantLot:   true,
}

var listingStatuses = map[ListingStatus]bool{
	StatusDraft:    true,
	StatusActive:   true,
	StatusPaused:   true,
	StatusArchived: true,
}

// Allowed lifecycle edges. Archived is terminal.
var transitions = map[ListingStatus][]ListingStatus{
	StatusDraft:    {StatusActive, StatusArchived},
	StatusActive:   {StatusPaused, StatusArchived},
	StatusPaused:   {StatusActive, StatusArchived},
	StatusArchived: {},
}

// ValidMode reports whether m is a known transaction mode.
func ValidMode(m TransactionMode) bool { return transactionModes[m] }

// ValidCategory reports whether c is a known property category.
func ValidCategory(c PropertyCategory) bool { return propertyCategories[c] }

// ValidStatus reports whether s is a known listing status.
func ValidStatus(s ListingStatus) bool { return listingStatuses[s] }

// CanTransition reports whether the from -> to edge is in the allowed set.
func CanTransition(from, to ListingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// HasRooms reports whether the category carries bedroom/bathroom counts.
// Bedroom and bathroom search minimums are only meaningful for these.
func HasRooms(c PropertyCategory) bool {
	return c == CategoryCondominium || c == CategoryHouseAndLot
}

// SizeFieldBSON returns the BSON path of the size attribute that range
// filters apply to for the given category: lot area for vacant lots,
// floor area for everything else.
func SizeFieldBSON(c PropertyCategory) string {
	switch c {
	case CategoryCondominium:
		return "details.condominium.floor_area"
	case CategoryHouseAndLot:
		return "details.house_and_lot.floor_area"
	case CategoryWarehouse:
		return "details.warehouse.floor_area"
	case CategoryVacantLot:
		return "details.vacant_lot.lot_area"
	}
	return ""
}
