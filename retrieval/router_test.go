package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferDocType(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     DocType
	}{
		{"schedule word", "Jadwal kuliah semester 3", DocTypeSchedule},
		{"transcript words", "nilai IPK saya", DocTypeTranscript},
		{"no hint", "halo apa kabar", DocTypeNone},
		{"empty", "", DocTypeNone},
		{"schedule wins over transcript", "jam berapa nilai keluar", DocTypeSchedule},
		{"registration form", "isi KRS semester 5", DocTypeSchedule},
		{"transcript wins over registration", "transkrip dan krs", DocTypeTranscript},
		{"suffixed keyword", "kelasnya di mana?", DocTypeSchedule},
		{"punctuation splits tokens", "IPK/IPS semester lalu", DocTypeTranscript},
		{"english schedule", "What room is the lecture in?", DocTypeSchedule},
		{"english transcript", "show my GPA", DocTypeTranscript},
		{"keyword inside word is not a match", "pengajaman", DocTypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDocType(tt.question))
		})
	}
}

func TestSemesterOf(t *testing.T) {
	tests := []struct {
		text   string
		want   int
		wantOK bool
	}{
		{"Jadwal kuliah semester 3", 3, true},
		{"SEMESTER12", 12, true},
		{"semester   7 ganjil", 7, true},
		{"semester ganjil", 0, false},
		{"semesters 4", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := SemesterOf(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
