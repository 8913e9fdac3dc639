package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/phonetracker/internal/geocoding"
	"github.com/2beens/phonetracker/internal/phone"
	"github.com/2beens/phonetracker/internal/telemetry/metrics"
	"github.com/2beens/phonetracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=lookup_test

type NumberResolver interface {
	Resolve(raw string) (*phone.Metadata, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, place string) (*geocoding.Location, error)
}

type Service struct {
	resolver NumberResolver
	geocoder Geocoder
	metrics  *metrics.Manager
	now      func() time.Time
}

func NewService(resolver NumberResolver, geocoder Geocoder, metricsManager *metrics.Manager) *Service {
	return &Service{
		resolver: resolver,
		geocoder: geocoder,
		metrics:  metricsManager,
		now:      time.Now,
	}
}

// Track validates and enriches raw, then resolves the region to a location.
// Validation failures are returned as errors; a failed geocoding lookup only
// leaves the location empty.
func (s *Service) Track(ctx context.Context, raw string) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "lookupService.track")
	defer span.End()
	defer func() {
		if err != nil {
			kind := KindOf(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("lookup.error_kind", string(kind)))
			s.metrics.CounterLookups.WithLabelValues(string(kind)).Inc()
		} else {
			s.metrics.CounterLookups.WithLabelValues(metrics.OutcomeSuccess).Inc()
		}
	}()

	md, err := s.resolver.Resolve(raw)
	if err != nil {
		log.Debugf("lookup: resolve [%s]: %s", raw, err)
		return nil, err
	}
	if md == nil {
		return nil, fmt.Errorf("resolve [%s]: no metadata", raw)
	}

	span.SetAttributes(
		attribute.String("phone.region", md.RegionCode),
		attribute.String("phone.country", md.Country),
	)

	timezones := md.Timezones
	if timezones == nil {
		timezones = []string{}
	}

	return &Result{
		PhoneNumber:   raw,
		Country:       md.Country,
		CarrierName:   md.Carrier,
		Timezones:     timezones,
		Location:      s.locate(ctx, md.Country),
		RegionCode:    md.RegionCode,
		E164:          md.E164,
		International: md.International,
		NumberType:    md.NumberType,
		LookedUpAt:    s.now(),
	}, nil
}

func (s *Service) locate(ctx context.Context, country string) *geocoding.Location {
	if country == "" {
		return nil
	}

	defer func(begin time.Time) {
		s.metrics.HistogramGeocodingDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())

	location, err := s.geocoder.Geocode(ctx, country)
	if err != nil {
		log.Warnf("lookup: geocode [%s]: %s", country, err)
		s.metrics.CounterGeocodingFailures.Inc()
		return nil
	}

	return location
}

// Slot holds the last successful Result of a session.
type Slot interface {
	Replace(result *Result) error
	Clear()
}

// Apply stores the outcome of a track action: a successful result replaces
// the slot value, any failure clears it.
func Apply(slot Slot, result *Result, trackErr error) error {
	if trackErr != nil || result == nil {
		slot.Clear()
		return nil
	}
	if err := slot.Replace(result); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}
