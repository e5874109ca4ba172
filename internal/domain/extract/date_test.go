package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultFormats = []string{"%m/%d/%Y", "%Y-%m-%d", "%b %d, %Y"}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		formats  []string
		wantDate string
		wantConf float64
	}{
		{"us slash format", "Date: 12/25/2023", defaultFormats, "2023-12-25", 0.95},
		{"iso format", "Issued 2024-01-05 at noon", defaultFormats, "2024-01-05", 0.95},
		{"month abbreviation", "Dec 25, 2023", defaultFormats, "2023-12-25", 0.95},
		{"day first falls back", "25/12/2023", defaultFormats, "2023-12-25", 0.90},
		{"two digit year falls back", "12-25-23", defaultFormats, "2023-12-25", 0.90},
		{"full month name falls back", "December 5 2023", defaultFormats, "2023-12-05", 0.90},
		{"custom format", "Rechnung 05.01.2024", []string{"%d.%m.%Y"}, "2024-01-05", 0.95},
		{"no formats uses fallback only", "1/2/2024", nil, "2024-01-02", 0.90},
		{"impossible date", "02/30/2023", defaultFormats, "", 0},
		{"no date", "no date here", defaultFormats, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, conf := ExtractDate(tt.text, tt.formats)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantConf, conf)
		})
	}
}

func TestParseLenientDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2024/3/7", "2024-03-07", true},
		{"3/7/2024", "2024-03-07", true},
		{"13/7/2024", "2024-07-13", true},
		{"3/7/99", "1999-03-07", true},
		{"Jan 9, 2024", "2024-01-09", true},
		{"JANUARY 9 2024", "2024-01-09", true},
		{"3/7/202", "", false},
		{"Foo 9, 2024", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLenientDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
