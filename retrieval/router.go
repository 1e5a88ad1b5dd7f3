package retrieval

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// DocType is a coarse document category used as a retrieval hint.
type DocType string

const (
	// DocTypeNone means the question carries no recognizable hint.
	DocTypeNone       DocType = ""
	DocTypeSchedule   DocType = "schedule"
	DocTypeTranscript DocType = "transcript"
)

var (
	scheduleWords = []string{
		"jadwal", "jam", "hari", "ruang", "kelas",
		"schedule", "timetable", "room", "class",
	}
	transcriptWords = []string{
		"transkrip", "nilai", "grade", "bobot", "ipk", "ips",
		"transcript", "gpa",
	}
	// Course registration forms list the enrolled timetable.
	registrationWords = []string{"krs"}

	semesterPattern = regexp.MustCompile(`(?i)\bsemester\s*(\d+)\b`)
)

// InferDocType classifies text by keyword. Schedule words win over
// transcript words, and a registration form counts as a schedule only when
// neither matched. A keyword matches any token it prefixes, so "kelasnya"
// is a schedule word and "nilainya" a transcript word.
func InferDocType(text string) DocType {
	tokens := tokenize(text)
	switch {
	case hasKeyword(tokens, scheduleWords):
		return DocTypeSchedule
	case hasKeyword(tokens, transcriptWords):
		return DocTypeTranscript
	case hasKeyword(tokens, registrationWords):
		return DocTypeSchedule
	}
	return DocTypeNone
}

// SemesterOf extracts the semester number mentioned in text, if any.
func SemesterOf(text string) (int, bool) {
	m := semesterPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasKeyword(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}
