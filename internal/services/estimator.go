package services

import (
	"strings"

	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// linearEstimator prices a property as a weighted linear model over its
// size attributes, adjusted by category and city multipliers. Baselines
// are per-square-meter figures in whole currency units.
type linearEstimator struct {
	currency string
}

// NewLinearEstimator returns the default Estimator.
func NewLinearEstimator(cfg *config.Config) Estimator {
	return &linearEstimator{currency: cfg.ValuationCurrency}
}

// Per-square-meter baselines by category.
var categoryBaseline = map[refdata.PropertyCategory]float64{
	refdata.CategoryCondominium: 120_000,
	refdata.CategoryHouseAndLot: 70_000,
	refdata.CategoryWarehouse:   35_000,
	refdata.CategoryVacantLot:   25_000,
}

// Metro markets command a premium over the default multiplier of 1.0.
var cityMultiplier = map[string]float64{
	"makati":      1.60,
	"taguig":      1.50,
	"manila":      1.20,
	"quezon city": 1.15,
	"pasig":       1.25,
	"cebu city":   1.10,
	"davao city":  0.95,
}

const (
	bedroomWeight = 250_000
	bathWeight    = 150_000
	parkingWeight = 400_000
	// Warehouse ceiling height premium per meter above the 4m standard.
	ceilingWeight = 500_000
)

func (e *linearEstimator) Estimate(category refdata.PropertyCategory, attrs models.PropertyDetails, city string) models.Price {
	base := categoryBaseline[category]
	var amount float64

	switch category {
	case refdata.CategoryCondominium:
		d := attrs.Condominium
		amount = base * d.FloorArea
		amount += float64(d.Bedrooms)*bedroomWeight + float64(d.Bathrooms)*bathWeight + float64(d.ParkingSpaces)*parkingWeight
	case refdata.CategoryHouseAndLot:
		d := attrs.HouseAndLot
		amount = base*d.FloorArea + base*0.5*d.LotArea
		amount += float64(d.Bedrooms)*bedroomWeight + float64(d.Bathrooms)*bathWeight + float64(d.ParkingSpaces)*parkingWeight
	case refdata.CategoryWarehouse:
		d := attrs.Warehouse
		amount = base*d.FloorArea + base*0.3*(d.LotArea-d.FloorArea)
		if d.CeilingHeight > 4 {
			amount += (d.CeilingHeight - 4) * ceilingWeight
		}
	case refdata.CategoryVacantLot:
		amount = base * attrs.VacantLot.LotArea
	}

	if mult, ok := cityMultiplier[strings.ToLower(strings.TrimSpace(city))]; ok {
		amount *= mult
	}
	if amount < 0 {
		amount = 0
	}

	return models.Price{Amount: amount, CurrencyCode: e.currency}
}
