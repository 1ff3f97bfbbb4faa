package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestKeyTermsRecord_AverageRentPSF(t *testing.T) {
	k := KeyTermsRecord{
		RentSchedule: []RentStep{
			{StartYear: 1, EndYear: 5, RatePSF: 20},
			{StartYear: 6, EndYear: 10, RatePSF: 30},
			{StartYear: 11, EndYear: 10, RatePSF: 999}, // zero duration, ignored
		},
	}

	avg, ok := k.AverageRentPSF()
	assert.True(t, ok)
	assert.Equal(t, 25.0, avg)
}

func TestKeyTermsRecord_AverageRentPSF_WeightedByDuration(t *testing.T) {
	k := KeyTermsRecord{
		RentSchedule: []RentStep{
			{StartYear: 1, EndYear: 3, RatePSF: 10},
			{StartYear: 4, EndYear: 4, RatePSF: 50},
		},
	}

	avg, ok := k.AverageRentPSF()
	assert.True(t, ok)
	assert.Equal(t, 20.0, avg)
}

func TestKeyTermsRecord_AverageRentPSF_Empty(t *testing.T) {
	var k KeyTermsRecord
	_, ok := k.AverageRentPSF()
	assert.False(t, ok)
}

func TestKeyTermsRecord_FirstYearRentPSF(t *testing.T) {
	k := KeyTermsRecord{
		RentSchedule: []RentStep{
			{StartYear: 6, EndYear: 10, RatePSF: 30},
			{StartYear: 1, EndYear: 5, RatePSF: 22.5},
		},
	}

	rate, ok := k.FirstYearRentPSF()
	assert.True(t, ok)
	assert.Equal(t, 22.5, rate)
}

func TestKeyTermsRecord_DisplayTenant(t *testing.T) {
	k := KeyTermsRecord{DocumentID: "lease.pdf"}
	assert.Equal(t, "lease.pdf", k.DisplayTenant())

	k.TenantName = ptr("Acme Foods Ltd.")
	assert.Equal(t, "Acme Foods Ltd.", k.DisplayTenant())

	k.TradeName = ptr("Church's Chicken")
	assert.Equal(t, "Church's Chicken", k.DisplayTenant())
}
