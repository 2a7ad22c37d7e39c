package attendance

import (
	"fmt"
	"math"
)

// UnknownLabel is the label of a match whose best distance reached the threshold.
const UnknownLabel = "unknown"

// DefaultThreshold is the maximum euclidean distance for a positive match.
// Lower values = stricter matching (fewer false accepts, more false rejects).
const DefaultThreshold = 0.5

// MatchResult is the closest roster student for a descriptor.
type MatchResult struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Known reports whether the result names a student.
func (r MatchResult) Known() bool {
	return r.Label != UnknownLabel
}

// TieBreak decides between students at exactly the same distance.
type TieBreak string

const (
	// TieFirstEnrolled keeps the student that appears first in the roster.
	TieFirstEnrolled TieBreak = "first-enrolled"
	// TieLowestID keeps the lexicographically smallest idNumber.
	TieLowestID TieBreak = "lowest-id"
)

// Aggregate decides how a student's descriptor samples combine into one distance.
type Aggregate string

const (
	// AggregateMin scores a student by their closest sample.
	AggregateMin Aggregate = "min"
	// AggregateMean scores a student by the mean distance over all samples.
	AggregateMean Aggregate = "mean"
)

// IndexKind selects how candidates are searched.
type IndexKind string

const (
	// IndexLinear compares against every enrolled descriptor.
	IndexLinear IndexKind = "linear"
	// IndexHNSW narrows candidates through an HNSW graph before exact scoring.
	IndexHNSW IndexKind = "hnsw"
)

// MatcherOptions configures a Matcher.
type MatcherOptions struct {
	Threshold float64
	TieBreak  TieBreak
	Aggregate Aggregate
	Index     IndexKind
}

// DefaultMatcherOptions returns the kiosk's standard matching configuration.
func DefaultMatcherOptions() MatcherOptions {
	return MatcherOptions{
		Threshold: DefaultThreshold,
		TieBreak:  TieFirstEnrolled,
		Aggregate: AggregateMin,
		Index:     IndexLinear,
	}
}

// Validate checks option values and their combination.
func (o MatcherOptions) Validate() error {
	if o.Threshold <= 0 || math.IsNaN(o.Threshold) {
		return fmt.Errorf("threshold must be positive, got %v", o.Threshold)
	}
	switch o.TieBreak {
	case TieFirstEnrolled, TieLowestID:
	default:
		return fmt.Errorf("unknown tie break %q", o.TieBreak)
	}
	switch o.Aggregate {
	case AggregateMin, AggregateMean:
	default:
		return fmt.Errorf("unknown aggregate %q", o.Aggregate)
	}
	switch o.Index {
	case IndexLinear:
	case IndexHNSW:
		if o.Aggregate != AggregateMin {
			return fmt.Errorf("hnsw index requires the %q aggregate", AggregateMin)
		}
	default:
		return fmt.Errorf("unknown index %q", o.Index)
	}
	return nil
}

// Matcher finds the closest enrolled student for a captured descriptor.
// It is immutable; a roster change means building a new Matcher.
type Matcher struct {
	roster *Roster
	opts   MatcherOptions
	index  *hnswIndex
}

// NewMatcher primes a matcher with every descriptor of the roster.
func NewMatcher(roster *Roster, opts MatcherOptions) (*Matcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{roster: roster, opts: opts}
	if opts.Index == IndexHNSW {
		m.index = newHNSWIndex(roster)
	}
	return m, nil
}

// Options returns the matcher's configuration.
func (m *Matcher) Options() MatcherOptions {
	return m.opts
}

// Match returns the closest student's idNumber and distance, or UnknownLabel
// when no student is strictly closer than the threshold.
func (m *Matcher) Match(d Descriptor) MatchResult {
	var best candidate
	if m.index != nil {
		best = m.index.nearest(d, m.opts.TieBreak)
	}
	// unknown must mean no enrolled sample is within the threshold.
	if best.student == nil || best.distance >= m.opts.Threshold {
		best = m.linear(d)
	}

	if best.student == nil || best.distance >= m.opts.Threshold {
		return MatchResult{Label: UnknownLabel, Distance: best.distance}
	}
	return MatchResult{Label: best.student.IDNumber, Distance: best.distance}
}

type candidate struct {
	student  *EnrolledStudent
	order    int // enrollment position
	distance float64
}

// better reports whether c should replace the current best.
func (c candidate) better(best candidate, tie TieBreak) bool {
	if best.student == nil {
		return true
	}
	if c.distance < best.distance {
		return true
	}
	if c.distance != best.distance {
		return false
	}
	if tie == TieLowestID {
		return c.student.IDNumber < best.student.IDNumber
	}
	return c.order < best.order
}

func (m *Matcher) linear(d Descriptor) candidate {
	best := candidate{distance: math.Inf(1)}
	students := m.roster.Students()
	for i := range students {
		s := &students[i]
		if len(s.Descriptors) == 0 {
			continue
		}
		c := candidate{student: s, order: i, distance: m.score(d, s)}
		if c.better(best, m.opts.TieBreak) {
			best = c
		}
	}
	return best
}

func (m *Matcher) score(d Descriptor, s *EnrolledStudent) float64 {
	if m.opts.Aggregate == AggregateMean {
		var sum float64
		for _, sample := range s.Descriptors {
			sum += EuclideanDistance(d, sample)
		}
		return sum / float64(len(s.Descriptors))
	}

	minDist := math.Inf(1)
	for _, sample := range s.Descriptors {
		minDist = math.Min(minDist, EuclideanDistance(d, sample))
	}
	return minDist
}
