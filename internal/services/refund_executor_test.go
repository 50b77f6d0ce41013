package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefundCents(t *testing.T) {
	// Cent-rounded amounts are often not exactly representable; 539.35 is
	// stored as 539.3499..., and truncation would lose a cent.
	assert.Equal(t, int64(53935), refundCents(539.35))
	assert.Equal(t, int64(8261), refundCents(82.61))
	assert.Equal(t, int64(100000), refundCents(1000))
	assert.Equal(t, int64(1), refundCents(0.01))
	assert.Equal(t, int64(0), refundCents(0))
}
