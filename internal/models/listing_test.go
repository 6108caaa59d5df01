package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

func TestBuildSearchText(t *testing.T) {
	assert.Equal(t,
		"cozy 2br condo in makati near ayala",
		BuildSearchText("Cozy 2BR Condo in Makati", "Near Ayala!"),
	)

	// Duplicates collapse, first occurrence wins.
	assert.Equal(t,
		"condo makati view",
		BuildSearchText("Condo Makati", "condo, MAKATI view"),
	)

	assert.Equal(t, "", BuildSearchText("", "...!!!"))
}

func TestPropertyDetailsValidate(t *testing.T) {
	condo := PropertyDetails{Condominium: &CondominiumDetails{FloorArea: 45, Bedrooms: 2, Bathrooms: 1}}
	assert.NoError(t, condo.Validate(refdata.CategoryCondominium))

	// Variant must match the category.
	err := condo.Validate(refdata.CategoryVacantLot)
	assert.True(t, apperrors.IsValidation(err))

	// No variant at all.
	empty := PropertyDetails{}
	assert.True(t, apperrors.IsValidation(empty.Validate(refdata.CategoryCondominium)))

	// Two variants set.
	double := PropertyDetails{
		Condominium: &CondominiumDetails{FloorArea: 45},
		VacantLot:   &VacantLotDetails{LotArea: 500},
	}
	assert.True(t, apperrors.IsValidation(double.Validate(refdata.CategoryCondominium)))

	lot := PropertyDetails{VacantLot: &VacantLotDetails{LotArea: 500}}
	assert.NoError(t, lot.Validate(refdata.CategoryVacantLot))
}

func TestPropertyDetailsBedrooms(t *testing.T) {
	condo := PropertyDetails{Condominium: &CondominiumDetails{Bedrooms: 3}}
	n, ok := condo.Bedrooms()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	lot := PropertyDetails{VacantLot: &VacantLotDetails{LotArea: 500}}
	_, ok = lot.Bedrooms()
	assert.False(t, ok)
}
