package lookup

import (
	"strings"
	"time"

	"github.com/2beens/phonetracker/internal/geocoding"
)

const Unknown = "Unknown"

// Result is the outcome of one successful track action. It is never mutated
// after creation; a new action produces a new Result.
type Result struct {
	PhoneNumber   string              `json:"phone_number"`
	Country       string              `json:"country,omitempty"`
	CarrierName   string              `json:"carrier_name,omitempty"`
	Timezones     []string            `json:"timezones"`
	Location      *geocoding.Location `json:"location,omitempty"`
	RegionCode    string              `json:"region_code,omitempty"`
	E164          string              `json:"e164,omitempty"`
	International string              `json:"international,omitempty"`
	NumberType    string              `json:"number_type,omitempty"`
	LookedUpAt    time.Time           `json:"looked_up_at"`
}

func (r *Result) CountryOrUnknown() string {
	return orUnknown(r.Country)
}

func (r *Result) CarrierOrUnknown() string {
	return orUnknown(r.CarrierName)
}

func (r *Result) TimezonesOrUnknown() string {
	if len(r.Timezones) == 0 {
		return Unknown
	}
	return strings.Join(r.Timezones, ", ")
}

func (r *Result) HasLocation() bool {
	return r != nil && r.Location != nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
