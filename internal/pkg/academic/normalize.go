package academic

import "strings"

// Hebrew abbreviation punctuation. Roster exports are inconsistent about
// these: the same grade arrives as ז, ז׳ or ז' depending on which program
// produced the file.
const (
	geresh    = '׳'
	gershayim = '״'
)

// quoteStripper removes geresh, gershayim and their ASCII/typographic
// stand-ins so that all spellings of a grade collapse to the bare letters.
var quoteStripper = strings.NewReplacer(
	string(geresh), "",
	string(gershayim), "",
	"'", "",
	"\"", "",
	"’", "",
)

// NormalizeGrade canonicalizes a roster grade label to one of the six
// recognized ordinals. Unrecognized labels are returned trimmed but otherwise
// unchanged; downstream code treats them as provisional grades.
func NormalizeGrade(label string) string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ""
	}
	stripped := strings.TrimSpace(quoteStripper.Replace(trimmed))
	if IsRecognizedGrade(stripped) {
		return stripped
	}
	return trimmed
}

// Gender values as stored on student records.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

var genderAliases = map[string]string{
	"male":   GenderMale,
	"m":      GenderMale,
	"ז":      GenderMale,
	"זכר":    GenderMale,
	"בן":     GenderMale,
	"female": GenderFemale,
	"f":      GenderFemale,
	"נ":      GenderFemale,
	"נקבה":   GenderFemale,
	"בת":     GenderFemale,
}

// NormalizeGender maps the gender spellings seen in roster exports (Hebrew
// single letters, full Hebrew words, English words and initials) onto the two
// stored values. Unrecognized input is returned trimmed so that validation
// can report the original text.
func NormalizeGender(label string) string {
	trimmed := strings.TrimSpace(label)
	if canonical, ok := genderAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
