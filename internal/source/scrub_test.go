package source

import (
	"strings"
	"testing"
)

func TestScrubPersonalData(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		removed []string
	}{
		{
			name:    "phone numbers",
			in:      "Soita +358 50 339 2228 tai 050-339-2228 arkisin.",
			removed: []string{"339", "2228"},
		},
		{
			name: "email and url",
			in:   "Apply at https://example.fi/apply?id=1 or hr@example.fi today.",
			want: "Apply at or today.",
		},
		{
			name:    "contact person",
			in:      "For additional information contact Anna Virtanen. We offer training.",
			want:    "For additional information. We offer training.",
			removed: []string{"Anna Virtanen"},
		},
		{
			name: "whitespace collapsed",
			in:   "  Kokoaikainen\n\n  työ \t Helsingissä ",
			want: "Kokoaikainen työ Helsingissä",
		},
		{
			name: "years of experience survive",
			in:   "6 years experience in Python",
			want: "6 years experience in Python",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScrubPersonalData(tt.in)
			if (tt.want != "" || tt.removed == nil) && got != tt.want {
				t.Errorf("ScrubPersonalData() = %q, want %q", got, tt.want)
			}
			for _, r := range tt.removed {
				if strings.Contains(got, r) {
					t.Errorf("expected %q removed, got %q", r, got)
				}
			}
		})
	}
}
