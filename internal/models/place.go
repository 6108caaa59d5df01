package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlaceLevel is where a toponym sits in the region/city/sub-locality
// hierarchy.
type PlaceLevel string

const (
	PlaceLevelRegion      PlaceLevel = "region"
	PlaceLevelCity        PlaceLevel = "city"
	PlaceLevelSubLocality PlaceLevel = "sub_locality"
)

// Place is a toponym document from the pre-populated places collection.
// Name and AltNames carry the text index used to resolve free-text area
// queries to a canonical place.
type Place struct {
	Base     `bson:",inline"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Level    PlaceLevel          `bson:"level" json:"level"`
	Name     string              `bson:"name" json:"name"`
	AltNames []string            `bson:"alt_names,omitempty" json:"alt_names,omitempty"`
	Region   string              `bson:"region" json:"region"`
	City     string              `bson:"city,omitempty" json:"city,omitempty"`
	Point    *GeoJSON            `bson:"point,omitempty" json:"point,omitempty"`
}

// DisplayName renders the place with its ancestors, most local first.
func (p *Place) DisplayName() string {
	parts := []string{p.Name}
	if p.Level == PlaceLevelSubLocality && p.City != "" {
		parts = append(parts, p.City)
	}
	if p.Region != "" && p.Region != p.Name {
		parts = append(parts, p.Region)
	}
	return strings.Join(parts, ", ")
}
