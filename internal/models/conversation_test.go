package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanonicalPair(t *testing.T) {
	a, _ := primitive.ObjectIDFromHex("000000000000000000000001")
	b, _ := primitive.ObjectIDFromHex("000000000000000000000002")

	lo1, hi1 := CanonicalPair(a, b)
	lo2, hi2 := CanonicalPair(b, a)

	assert.Equal(t, lo1, lo2, "order of arguments must not matter")
	assert.Equal(t, hi1, hi2)
	assert.Equal(t, a, lo1)
	assert.Equal(t, b, hi1)
}

func TestConversationIncludes(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	lo, hi := CanonicalPair(a, b)
	conv := Conversation{UserLo: lo, UserHi: hi}

	assert.True(t, conv.Includes(a))
	assert.True(t, conv.Includes(b))
	assert.False(t, conv.Includes(stranger))
}
