package source

import (
	"context"
	"fmt"
	"iter"
	"math"
	"sync"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/domain"
)

const (
	defaultMockCount       = 100
	defaultMockSSOProb     = 0.3
	defaultMockReassocProb = 0.05
	defaultMockSpanDays    = 30.0

	mockAlertIDBase     = 1_000_000
	mockDetectionIDBase = 2_000_000
	mockObjectIDBase    = 3_000_000
	// sightings grouped under one dia object
	mockSourcesPerObject = 10
)

var mockBands = []string{"g", "r", "i", "z", "y"}

// MockConfig configures the synthetic alert source
type MockConfig struct {
	// Count is the number of alerts generated per connection
	Count int
	// Seed makes the sequence reproducible; 0 picks a random seed
	Seed int64
	// SSOProbability is the chance that a detection is associated with a solar system object.
	// Values outside [0, 1] fall back to the default.
	SSOProbability float64
	// ReassociationProbability is the chance that a revisit changes the association
	ReassociationProbability float64
	// Revisits is the number of sightings generated per detection
	Revisits int
	// BaseMJD is the start of the observation span; 0 starts SpanDays before now
	BaseMJD float64
	// SpanDays is the length of the observation span
	SpanDays float64
}

// MockSource generates synthetic alerts with a realistic extendedness mix:
// about half point-like, 40% extended and 10% intermediate.
type MockSource struct {
	cfg   MockConfig
	clock adapter.Clock

	mu        sync.Mutex
	connected bool
	faker     *gofakeit.Faker
	generated int
	baseMJD   float64
	// association per detection, kept so revisits stay consistent
	associations map[int64]mockAssociation
}

type mockAssociation struct {
	objectID    string
	retimestamp float64
}

// NewMockSource creates a synthetic source
func NewMockSource(cfg MockConfig, clock adapter.Clock) *MockSource {
	if cfg.Count <= 0 {
		cfg.Count = defaultMockCount
	}
	if cfg.SSOProbability < 0 || cfg.SSOProbability > 1 || math.IsNaN(cfg.SSOProbability) {
		cfg.SSOProbability = defaultMockSSOProb
	}
	if cfg.ReassociationProbability < 0 || cfg.ReassociationProbability > 1 {
		cfg.ReassociationProbability = defaultMockReassocProb
	}
	if cfg.Revisits <= 0 {
		cfg.Revisits = 1
	}
	if cfg.SpanDays <= 0 {
		cfg.SpanDays = defaultMockSpanDays
	}
	if clock == nil {
		clock = adapter.NewClock()
	}

	return &MockSource{cfg: cfg, clock: clock}
}

func (s *MockSource) Name() string {
	return TypeMock
}

// Connect resets the generator so every connection replays the same sequence for a seed
func (s *MockSource) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.faker = gofakeit.NewUnlocked(s.cfg.Seed)
	s.generated = 0
	s.associations = make(map[int64]mockAssociation)
	s.baseMJD = s.cfg.BaseMJD
	if s.baseMJD <= 0 {
		s.baseMJD = domain.DaysAgoMJD(s.clock.Now(), s.cfg.SpanDays)
	}
	s.connected = true

	return nil
}

func (s *MockSource) Fetch(ctx context.Context, limit int) iter.Seq2[domain.RawAlert, error] {
	return func(yield func(domain.RawAlert, error) bool) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if !s.connected {
			yield(nil, notConnected(s.Name()))
			return
		}

		remaining := s.cfg.Count - s.generated
		if limit > 0 {
			remaining = min(remaining, limit)
		}
		for range remaining {
			if err := ctx.Err(); err != nil {
				yield(nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err))
				return
			}
			raw := s.generate(s.generated)
			s.generated++
			if !yield(raw, nil) {
				return
			}
		}
	}
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.faker = nil
	s.associations = nil
	return nil
}

// Generated returns the number of alerts produced since the last Connect
func (s *MockSource) Generated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

func (s *MockSource) generate(index int) domain.RawAlert {
	f := s.faker

	detection := int64(index / s.cfg.Revisits)
	detectionID := mockDetectionIDBase + detection

	extendedness := s.extendedness()
	flux := f.Rand.NormFloat64()*500 + 1000
	fluxErr := math.Abs(f.Rand.NormFloat64()*math.Abs(flux)*0.005 + flux*0.01)
	// observation times increase with the index so revisits stay in order
	mjd := s.baseMJD + s.cfg.SpanDays*(float64(index)+f.Float64Range(0, 1))/float64(s.cfg.Count)

	raw := domain.RawAlert{
		domain.KeyAlertID:             int64(mockAlertIDBase + index),
		domain.KeyDetectionID:         detectionID,
		domain.KeyObjectID:            int64(mockObjectIDBase + detection/mockSourcesPerObject),
		domain.KeyRA:                  f.Float64Range(0, 359.999999),
		domain.KeyDec:                 f.Float64Range(-90, 90),
		domain.KeyMJD:                 mjd,
		domain.KeyFilterBand:          f.RandomString(mockBands),
		domain.KeyFlux:                math.Max(0, flux),
		domain.KeyFluxError:           fluxErr,
		domain.KeyExtendednessMedian:  extendedness,
		domain.KeyExtendednessMin:     math.Max(0, extendedness-f.Float64Range(0, 0.1)),
		domain.KeyExtendednessMax:     math.Min(1, extendedness+f.Float64Range(0, 0.1)),
		domain.KeyHasAssociatedObject: false,
		domain.KeyPixelFlags: map[string]any{
			"pixelFlagsBad":       f.Float64Range(0, 1) < 0.01,
			"pixelFlagsCr":        f.Float64Range(0, 1) < 0.05,
			"pixelFlagsEdge":      f.Float64Range(0, 1) < 0.02,
			"pixelFlagsSaturated": f.Float64Range(0, 1) < 0.01,
		},
	}
	if fluxErr > 0 {
		raw[domain.KeySNR] = math.Abs(flux / fluxErr)
	}
	if f.Float64Range(0, 1) < 0.1 {
		raw[domain.KeyTrailData] = map[string]any{
			"trailLength": f.Float64Range(1, 50),
			"trailAngle":  f.Float64Range(0, 360),
		}
	}

	if assoc, ok := s.associate(detectionID, index, mjd); ok {
		raw[domain.KeyHasAssociatedObject] = true
		raw[domain.KeyAssociatedObjectID] = assoc.objectID
		raw[domain.KeyAssociationRetimestamp] = assoc.retimestamp
	}

	return raw
}

func (s *MockSource) extendedness() float64 {
	f := s.faker
	var e float64
	switch kind := f.Float64Range(0, 1); {
	case kind < 0.5:
		e = f.Rand.NormFloat64()*0.05 + 0.15
	case kind < 0.9:
		e = f.Rand.NormFloat64()*0.1 + 0.85
	default:
		e = f.Rand.NormFloat64()*0.15 + 0.5
	}
	return math.Max(0, math.Min(1, e))
}

// associate decides the association of a sighting. The first sighting of a
// detection draws against SSOProbability; revisits keep the association unless
// ReassociationProbability triggers a new object or a new retimestamp.
func (s *MockSource) associate(detectionID int64, index int, mjd float64) (mockAssociation, bool) {
	f := s.faker

	prior, seen := s.associations[detectionID]
	if !seen {
		if f.Float64Range(0, 1) >= s.cfg.SSOProbability {
			s.associations[detectionID] = mockAssociation{}
			return mockAssociation{}, false
		}
		assoc := mockAssociation{
			objectID:    fmt.Sprintf("SSO_%06d", index),
			retimestamp: mjd - f.Float64Range(0, 1),
		}
		s.associations[detectionID] = assoc
		return assoc, true
	}

	if f.Float64Range(0, 1) >= s.cfg.ReassociationProbability {
		return prior, prior.objectID != ""
	}

	next := prior
	if prior.objectID == "" || f.Bool() {
		next.objectID = fmt.Sprintf("SSO_%06d", index)
	}
	next.retimestamp = mjd - f.Float64Range(0, 0.5)
	s.associations[detectionID] = next
	return next, true
}
