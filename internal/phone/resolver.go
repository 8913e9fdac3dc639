package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	DefaultLanguage = "en"

	// timezone reported by the library when it has no mapping for the prefix
	unknownTimezone = "Etc/Unknown"
)

// Metadata is everything known about a valid number. Each descriptive field
// is best effort and may be empty.
type Metadata struct {
	Input         string
	Country       string
	Carrier       string
	Timezones     []string
	RegionCode    string
	E164          string
	International string
	NumberType    string
}

type Resolver struct {
	language string
}

func NewResolver(language string) *Resolver {
	if language == "" {
		language = DefaultLanguage
	}
	return &Resolver{
		language: language,
	}
}

// Resolve parses raw without a default region, so the number must carry its
// country calling code, and enriches a valid number with its metadata.
func (r *Resolver) Resolve(raw string) (*Metadata, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return nil, &ParseError{Input: raw, Cause: err}
	}

	if !phonenumbers.IsValidNumber(num) {
		return nil, ErrInvalidNumber
	}

	regionCode := phonenumbers.GetRegionCodeForNumber(num)
	return &Metadata{
		Input:         raw,
		Country:       r.description(num, regionCode),
		Carrier:       r.carrier(num),
		Timezones:     timezones(num),
		RegionCode:    regionCode,
		E164:          phonenumbers.Format(num, phonenumbers.E164),
		International: phonenumbers.Format(num, phonenumbers.INTERNATIONAL),
		NumberType:    NumberTypeName(phonenumbers.GetNumberType(num)),
	}, nil
}

func (r *Resolver) description(num *phonenumbers.PhoneNumber, regionCode string) string {
	desc, err := phonenumbers.GetGeocodingForNumber(num, r.language)
	if err != nil {
		log.Debugf("phone resolver: no geocoding description for [%s]: %s", regionCode, err)
	}
	if desc != "" {
		return desc
	}

	return r.regionName(regionCode)
}

// regionName falls back to the display name of the region, e.g. "United States" for "US".
func (r *Resolver) regionName(regionCode string) string {
	region, err := language.ParseRegion(regionCode)
	if err != nil {
		return ""
	}
	tag, err := language.Parse(r.language)
	if err != nil {
		tag = language.English
	}
	namer := display.Regions(tag)
	if namer == nil {
		return ""
	}
	return namer.Name(region)
}

func (r *Resolver) carrier(num *phonenumbers.PhoneNumber) string {
	name, err := phonenumbers.GetCarrierForNumber(num, r.language)
	if err != nil {
		log.Debugf("phone resolver: no carrier for number: %s", err)
		return ""
	}
	return name
}

func timezones(num *phonenumbers.PhoneNumber) []string {
	zones, err := phonenumbers.GetTimezonesForNumber(num)
	if err != nil {
		log.Debugf("phone resolver: no timezones for number: %s", err)
		return []string{}
	}

	known := make([]string, 0, len(zones))
	for _, z := range zones {
		if z == "" || z == unknownTimezone {
			continue
		}
		known = append(known, z)
	}
	return known
}

func NumberTypeName(t phonenumbers.PhoneNumberType) string {
	switch t {
	case phonenumbers.FIXED_LINE:
		return "fixed line"
	case phonenumbers.MOBILE:
		return "mobile"
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return "fixed line or mobile"
	case phonenumbers.TOLL_FREE:
		return "toll free"
	case phonenumbers.PREMIUM_RATE:
		return "premium rate"
	case phonenumbers.SHARED_COST:
		return "shared cost"
	case phonenumbers.VOIP:
		return "voip"
	case phonenumbers.PERSONAL_NUMBER:
		return "personal number"
	case phonenumbers.PAGER:
		return "pager"
	case phonenumbers.UAN:
		return "uan"
	case phonenumbers.VOICEMAIL:
		return "voicemail"
	default:
		return "unknown"
	}
}
