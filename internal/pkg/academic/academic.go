// Package academic implements the school calendar arithmetic that links an
// enrollment cycle (the academic year a student entered the entry grade) to
// the student's current grade and lifecycle phase.
package academic

import "time"

// Clock supplies the current time. Services hold one so that calendar
// derivations stay deterministic under test.
type Clock func() time.Time

// Phase classifies an enrollment cycle relative to a reference academic year.
type Phase string

const (
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
	PhaseFuture Phase = "future"
)

// GradeOrder lists the six grade ordinals in ascending order. Index 0 is the
// entry grade, index 5 the terminal grade.
var GradeOrder = []string{"ז", "ח", "ט", "י", "יא", "יב"}

// minPlausibleCycle bounds cycle derivation from below; roster sources
// predating it are assumed to be typos.
const minPlausibleCycle = 2000

var gradeIndex = buildGradeIndex()

func buildGradeIndex() map[string]int {
	m := make(map[string]int, len(GradeOrder))
	for i, g := range GradeOrder {
		m[g] = i
	}
	return m
}

// CurrentAcademicYear returns the academic year containing t. The academic
// year rolls over on September 1st, so October 2024 and May 2025 both belong
// to academic year 2024.
func CurrentAcademicYear(t time.Time) int {
	if t.Month() >= time.September {
		return t.Year()
	}
	return t.Year() - 1
}

// CyclePhase classifies cycle against the reference academic year.
func CyclePhase(cycle, refYear int) Phase {
	diff := refYear - cycle
	switch {
	case diff < 0:
		return PhaseFuture
	case diff > len(GradeOrder)-1:
		return PhaseEnded
	default:
		return PhaseActive
	}
}

// GradeFromCycle derives the grade a student of the given cycle attends in
// the reference academic year. The derivation is defined only while the
// cycle is active; ok is false otherwise.
func GradeFromCycle(cycle, refYear int) (string, bool) {
	if CyclePhase(cycle, refYear) != PhaseActive {
		return "", false
	}
	return GradeOrder[refYear-cycle], true
}

// CycleFromGrade inverts GradeFromCycle: given a recognized grade ordinal and
// the reference academic year, it returns the cycle a student attending that
// grade must belong to. ok is false when the grade is unrecognized or the
// resulting cycle falls outside the plausible window [2000, refYear+1].
func CycleFromGrade(grade string, refYear int) (int, bool) {
	idx, known := gradeIndex[grade]
	if !known {
		return 0, false
	}
	cycle := refYear - idx
	if cycle < minPlausibleCycle || cycle > refYear+1 {
		return 0, false
	}
	return cycle, true
}

// IsRecognizedGrade reports whether label is one of the six canonical grade
// ordinals.
func IsRecognizedGrade(label string) bool {
	_, ok := gradeIndex[label]
	return ok
}
