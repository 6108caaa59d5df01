package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the Mongo document ID shared by all entities.
type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
}

// GenIDIfEmpty assigns a fresh ObjectID if none is set yet.
func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
}

func NewBase() Base {
	return Base{ID: primitive.NewObjectID()}
}
