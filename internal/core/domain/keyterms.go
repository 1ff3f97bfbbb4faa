package domain

import (
	"math"
	"time"
)

// RentStep is one period of a lease's basic rent schedule.
type RentStep struct {
	// StartYear is the first lease year of the step (1-based).
	StartYear float64 `json:"start_year"`

	// EndYear is the last lease year of the step, inclusive.
	EndYear float64 `json:"end_year"`

	// RatePSF is the annual rent per square foot.
	RatePSF float64 `json:"rate_psf"`

	// MonthlyRent is the monthly basic rent, if stated.
	MonthlyRent *float64 `json:"monthly_rent,omitempty"`

	// AnnualRent is the annual basic rent, if stated.
	AnnualRent *float64 `json:"annual_rent,omitempty"`
}

// Duration returns the number of lease years the step covers.
func (s RentStep) Duration() float64 {
	return s.EndYear - s.StartYear + 1
}

// KeyTermsRecord holds the scalar fields extracted from one lease.
// Every field is optional: nil means "not found", never an empty value.
type KeyTermsRecord struct {
	DocumentID string `json:"document_id"`

	TenantName          *string `json:"tenant_name,omitempty"`
	TradeName           *string `json:"trade_name,omitempty"`
	LandlordName        *string `json:"landlord_name,omitempty"`
	TenantAddress       *string `json:"tenant_address,omitempty"`
	Indemnifier         *string `json:"indemnifier,omitempty"`
	PremisesDescription *string `json:"premises_description,omitempty"`

	LeaseDate        *time.Time `json:"lease_date,omitempty"`
	CommencementDate *time.Time `json:"commencement_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`

	// RentableArea is in square feet.
	RentableArea  *float64 `json:"rentable_area,omitempty"`
	TermYears     *float64 `json:"term_years,omitempty"`
	DepositAmount *float64 `json:"deposit_amount,omitempty"`

	RenewalOption        *string `json:"renewal_option,omitempty"`
	PermittedUse         *string `json:"permitted_use,omitempty"`
	FixturingPeriod      *string `json:"fixturing_period,omitempty"`
	FreeRentPeriod       *string `json:"free_rent_period,omitempty"`
	PossessionDate       *string `json:"possession_date,omitempty"`
	ImprovementAllowance *string `json:"improvement_allowance,omitempty"`
	ExclusiveUse         *string `json:"exclusive_use,omitempty"`
	RadiusRestriction    *string `json:"radius_restriction,omitempty"`

	RentSchedule []RentStep `json:"rent_schedule,omitempty"`

	// ExtractedAt is when the record was produced.
	ExtractedAt time.Time `json:"extracted_at"`
}

// DisplayTenant returns the trade name, tenant name, or document ID,
// whichever is found first.
func (k *KeyTermsRecord) DisplayTenant() string {
	if k.TradeName != nil && *k.TradeName != "" {
		return *k.TradeName
	}
	if k.TenantName != nil && *k.TenantName != "" {
		return *k.TenantName
	}
	return k.DocumentID
}

// AverageRentPSF returns the rent per square foot averaged over the
// schedule, weighted by step duration. Steps with a non-positive duration
// are ignored. The second return value is false when no step qualifies.
func (k *KeyTermsRecord) AverageRentPSF() (float64, bool) {
	var total, years float64
	for _, step := range k.RentSchedule {
		d := step.Duration()
		if d <= 0 {
			continue
		}
		total += step.RatePSF * d
		years += d
	}
	if years == 0 {
		return 0, false
	}
	return math.Round(total/years*100) / 100, true
}

// FirstYearRentPSF returns the rate of the earliest rent step.
func (k *KeyTermsRecord) FirstYearRentPSF() (float64, bool) {
	if len(k.RentSchedule) == 0 {
		return 0, false
	}
	first := k.RentSchedule[0]
	for _, s := range k.RentSchedule[1:] {
		if s.StartYear < first.StartYear {
			first = s
		}
	}
	return first.RatePSF, true
}
