package attendance

import (
	"strings"
	"unicode"

	"github.com/yogaportal/attendance-kiosk/internal/portal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EnrolledStudent is a roster entry: a student and every descriptor sample
// captured for them, in enrollment order.
type EnrolledStudent struct {
	IDNumber    string       `json:"idNumber"`
	Name        string       `json:"name"`
	Gender      string       `json:"gender,omitempty"`
	Descriptors []Descriptor `json:"-"`
}

// Roster is the session's read-through copy of the enrolled students.
// Order follows the portal's listing, which is enrollment order.
type Roster struct {
	students []EnrolledStudent
	byID     map[string]int
}

// NewRoster builds a roster from the portal's student listing. A later entry
// with an already seen idNumber contributes its descriptors to the first one.
func NewRoster(students []portal.Student) *Roster {
	r := &Roster{byID: make(map[string]int, len(students))}
	for _, s := range students {
		descriptors := make([]Descriptor, 0, len(s.FaceDescriptors))
		for _, d := range s.FaceDescriptors {
			descriptors = append(descriptors, Descriptor(d))
		}

		if i, ok := r.byID[s.IDNumber]; ok {
			r.students[i].Descriptors = append(r.students[i].Descriptors, descriptors...)
			continue
		}
		r.byID[s.IDNumber] = len(r.students)
		r.students = append(r.students, EnrolledStudent{
			IDNumber:    s.IDNumber,
			Name:        s.Name,
			Gender:      s.Gender,
			Descriptors: descriptors,
		})
	}
	return r
}

// Students returns the roster entries in enrollment order.
func (r *Roster) Students() []EnrolledStudent {
	return r.students
}

// Len returns the number of students.
func (r *Roster) Len() int {
	return len(r.students)
}

// DescriptorCount returns the number of descriptor samples across all students.
func (r *Roster) DescriptorCount() int {
	n := 0
	for _, s := range r.students {
		n += len(s.Descriptors)
	}
	return n
}

// Get looks a student up by idNumber.
func (r *Roster) Get(idNumber string) (EnrolledStudent, bool) {
	i, ok := r.byID[idNumber]
	if !ok {
		return EnrolledStudent{}, false
	}
	return r.students[i], true
}

// SearchByName returns students whose normalized name contains every word of query.
func (r *Roster) SearchByName(query string) []EnrolledStudent {
	words := strings.Fields(NormalizeName(query))
	var result []EnrolledStudent
	for _, s := range r.students {
		name := NormalizeName(s.Name)
		matched := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				matched = false
				break
			}
		}
		if matched {
			result = append(result, s)
		}
	}
	return result
}

// NormalizeName folds a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, name)
	folded = strings.ToLower(folded)
	return strings.ReplaceAll(folded, "-", " ")
}
