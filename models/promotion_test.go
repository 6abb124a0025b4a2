package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPromotionType(t *testing.T) {
	for _, promoType := range []string{
		PromotionTypePercentage, PromotionTypeFixedAmount,
		PromotionTypeFreeItem, PromotionTypeBOGO,
	} {
		assert.True(t, ValidPromotionType(promoType), promoType)
	}

	assert.False(t, ValidPromotionType("RAFFLE"))
	assert.False(t, ValidPromotionType("percentage"))
	assert.False(t, ValidPromotionType(""))
}
