package attendance

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

const eps = 1e-6

func student(id, name string, descriptors ...Descriptor) portal.Student {
	s := portal.Student{IDNumber: id, Name: name, Gender: "Female"}
	for _, d := range descriptors {
		s.FaceDescriptors = append(s.FaceDescriptors, d)
	}
	return s
}

func mustMatcher(t *testing.T, opts MatcherOptions, students ...portal.Student) *Matcher {
	t.Helper()
	m, err := NewMatcher(NewRoster(students), opts)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	return m
}

func TestEuclideanDistance(t *testing.T) {
	if d := EuclideanDistance(Descriptor{0, 0}, Descriptor{3, 4}); math.Abs(d-5) > eps {
		t.Errorf("expected 5, got %f", d)
	}
	if d := EuclideanDistance(Descriptor{1}, Descriptor{1, 2}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %f", d)
	}
	if d := EuclideanDistance(nil, nil); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty descriptors, got %f", d)
	}
}

func TestMatch_ThresholdScenario(t *testing.T) {
	m := mustMatcher(t, DefaultMatcherOptions(), student("S1", "Asha", vec()))

	near := m.Match(vec(0.3))
	if near.Label != "S1" || math.Abs(near.Distance-0.3) > eps {
		t.Errorf("expected {S1 0.3}, got %+v", near)
	}

	far := m.Match(vec(0.7))
	if far.Label != UnknownLabel || math.Abs(far.Distance-0.7) > eps {
		t.Errorf("expected {unknown 0.7}, got %+v", far)
	}
}

func TestMatch_ThresholdIsExclusive(t *testing.T) {
	opts := DefaultMatcherOptions()
	opts.Threshold = 0.5
	m := mustMatcher(t, opts, student("S1", "Asha", vec()))

	if got := m.Match(vec(0.5)); got.Known() {
		t.Errorf("expected distance equal to threshold to be unknown, got %+v", got)
	}
}

func TestMatch_OwnDescriptorAlwaysMatches(t *testing.T) {
	students := []portal.Student{
		student("S1", "Asha", vec(1), vec(1, 0.1)),
		student("S2", "Ravi", vec(0, 1)),
		student("S3", "Meera", vec(0, 0, 1), vec(0, 0, 1.1)),
	}
	for _, index := range []IndexKind{IndexLinear, IndexHNSW} {
		opts := DefaultMatcherOptions()
		opts.Index = index
		m := mustMatcher(t, opts, students...)

		for _, s := range students {
			for _, d := range s.FaceDescriptors {
				got := m.Match(d)
				if got.Label != s.IDNumber {
					t.Errorf("%s: expected %s for own descriptor, got %+v", index, s.IDNumber, got)
				}
			}
		}
	}
}

func TestMatch_HNSWAgreesWithLinearOnLargeRoster(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	randomDescriptor := func() Descriptor {
		d := make(Descriptor, portal.DescriptorLength)
		for i := range d {
			d[i] = rng.Float32()
		}
		return d
	}

	students := make([]portal.Student, 150)
	for i := range students {
		students[i] = student(fmt.Sprintf("S%03d", i), fmt.Sprintf("Student %d", i), randomDescriptor())
	}

	linear := mustMatcher(t, DefaultMatcherOptions(), students...)
	opts := DefaultMatcherOptions()
	opts.Index = IndexHNSW
	indexed := mustMatcher(t, opts, students...)

	for _, s := range students {
		own := Descriptor(s.FaceDescriptors[0])
		if got := indexed.Match(own); got.Label != s.IDNumber || got.Distance != 0 {
			t.Errorf("expected {%s 0} for own descriptor, got %+v", s.IDNumber, got)
		}

		noisy := make(Descriptor, len(own))
		for i, v := range own {
			noisy[i] = v + float32(rng.NormFloat64()*0.01)
		}
		want := linear.Match(noisy)
		if got := indexed.Match(noisy); got != want {
			t.Errorf("%s: hnsw %+v disagrees with linear %+v", s.IDNumber, got, want)
		}
	}

	if got := indexed.Match(randomDescriptor()); got.Known() {
		t.Errorf("expected a stranger to be unknown, got %+v", got)
	}
}

func TestMatch_EmptyRoster(t *testing.T) {
	m := mustMatcher(t, DefaultMatcherOptions())

	got := m.Match(vec(0.1))
	if got.Known() {
		t.Errorf("expected unknown on empty roster, got %+v", got)
	}
	if !math.IsInf(got.Distance, 1) {
		t.Errorf("expected +Inf distance, got %f", got.Distance)
	}
}

func TestMatch_SkipsStudentsWithoutDescriptors(t *testing.T) {
	m := mustMatcher(t, DefaultMatcherOptions(), student("S0", "No Face"), student("S1", "Asha", vec()))

	if got := m.Match(vec(0.1)); got.Label != "S1" {
		t.Errorf("expected S1, got %+v", got)
	}
}

func TestMatch_TieBreak(t *testing.T) {
	// Both students sit at distance 0.2 from the probe.
	students := []portal.Student{
		student("S9", "Zara", vec(0.2)),
		student("S1", "Asha", vec(-0.2)),
	}

	first := mustMatcher(t, DefaultMatcherOptions(), students...)
	if got := first.Match(vec()); got.Label != "S9" {
		t.Errorf("first-enrolled: expected S9, got %+v", got)
	}

	opts := DefaultMatcherOptions()
	opts.TieBreak = TieLowestID
	lowest := mustMatcher(t, opts, students...)
	if got := lowest.Match(vec()); got.Label != "S1" {
		t.Errorf("lowest-id: expected S1, got %+v", got)
	}
}

func TestMatch_Aggregate(t *testing.T) {
	// S1 has one sample very close and one far; S2 has two moderately close samples.
	students := []portal.Student{
		student("S1", "Asha", vec(0.05), vec(0.9)),
		student("S2", "Ravi", vec(0.2), vec(-0.2)),
	}

	minMatcher := mustMatcher(t, DefaultMatcherOptions(), students...)
	if got := minMatcher.Match(vec()); got.Label != "S1" {
		t.Errorf("min: expected S1, got %+v", got)
	}

	opts := DefaultMatcherOptions()
	opts.Aggregate = AggregateMean
	meanMatcher := mustMatcher(t, opts, students...)
	got := meanMatcher.Match(vec())
	if got.Label != "S2" || math.Abs(got.Distance-0.2) > eps {
		t.Errorf("mean: expected {S2 0.2}, got %+v", got)
	}
}

func TestMatcherOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MatcherOptions)
		wantErr bool
	}{
		{"defaults", func(o *MatcherOptions) {}, false},
		{"zero threshold", func(o *MatcherOptions) { o.Threshold = 0 }, true},
		{"unknown tie break", func(o *MatcherOptions) { o.TieBreak = "random" }, true},
		{"unknown aggregate", func(o *MatcherOptions) { o.Aggregate = "median" }, true},
		{"unknown index", func(o *MatcherOptions) { o.Index = "kdtree" }, true},
		{"hnsw with mean", func(o *MatcherOptions) { o.Index = IndexHNSW; o.Aggregate = AggregateMean }, true},
		{"hnsw with min", func(o *MatcherOptions) { o.Index = IndexHNSW }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultMatcherOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
