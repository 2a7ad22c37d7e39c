package attendance

import (
	"context"
	"fmt"

	"github.com/yogaportal/attendance-kiosk/internal/portal"
)

// Load steps reported to the progress callback.
const (
	StepModels  = "loading face models"
	StepRoster  = "fetching student roster"
	StepMatcher = "building matcher"
)

// LoadSteps is the number of progress callbacks a successful Load makes.
const LoadSteps = 3

// StudentSource lists enrolled students.
type StudentSource interface {
	ListStudents(ctx context.Context) ([]portal.Student, error)
}

// Loader loads the model bundle and the roster, then primes a matcher.
type Loader struct {
	extractor Extractor
	modelsDir string
	source    StudentSource
	opts      MatcherOptions
	progress  func(step string)
}

// NewLoader creates a loader. progress may be nil.
func NewLoader(extractor Extractor, modelsDir string, source StudentSource, opts MatcherOptions, progress func(step string)) *Loader {
	return &Loader{
		extractor: extractor,
		modelsDir: modelsDir,
		source:    source,
		opts:      opts,
		progress:  progress,
	}
}

func (l *Loader) report(step string) {
	if l.progress != nil {
		l.progress(step)
	}
}

// Load performs a full rebuild: models (no-op when already loaded), the
// complete roster, and a fresh matcher over it.
func (l *Loader) Load(ctx context.Context) (*Roster, *Matcher, error) {
	if err := l.extractor.Load(ctx, l.modelsDir); err != nil {
		return nil, nil, fmt.Errorf("loading models from %s: %w", l.modelsDir, err)
	}
	l.report(StepModels)

	students, err := l.source.ListStudents(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching roster: %w", remoteError(err))
	}
	roster := NewRoster(students)
	l.report(StepRoster)

	matcher, err := NewMatcher(roster, l.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("building matcher: %w", err)
	}
	l.report(StepMatcher)

	return roster, matcher, nil
}
