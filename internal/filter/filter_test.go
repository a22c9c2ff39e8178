package filter

import (
	"testing"

	"github.com/amishk599/jobfacet/internal/model"
)

func posting(title string) model.Posting {
	return model.Posting{Title: title, Location: "Helsinki"}
}

func TestTitleFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		include   []string
		exclude   []string
		posting   model.Posting
		wantMatch bool
	}{
		{
			name:      "include keyword matches",
			include:   []string{"developer", "kehittäjä"},
			posting:   posting("Ohjelmistokehittäjä"),
			wantMatch: true,
		},
		{
			name:      "no include keyword matches",
			include:   []string{"developer"},
			posting:   posting("Varastotyöntekijä"),
			wantMatch: false,
		},
		{
			name:      "exclude wins over include",
			include:   []string{"developer"},
			exclude:   []string{"senior"},
			posting:   posting("Senior Developer"),
			wantMatch: false,
		},
		{
			name:      "case insensitive matching",
			include:   []string{"SALES"},
			posting:   posting("Sales Assistant"),
			wantMatch: true,
		},
		{
			name:      "empty keyword lists pass all",
			posting:   posting("Any Role"),
			wantMatch: true,
		},
		{
			name:      "blank keywords are ignored",
			include:   []string{"  "},
			posting:   posting("Any Role"),
			wantMatch: true,
		},
		{
			name:      "sentinel title is dropped",
			posting:   posting(model.NotAvailable),
			wantMatch: false,
		},
		{
			name:      "empty title is dropped",
			posting:   posting(""),
			wantMatch: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewTitleFilter(tt.include, tt.exclude)
			got := f.Match(tt.posting)
			if got != tt.wantMatch {
				t.Errorf("Match() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}
