package shared

import "testing"

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Tempo Perdido",
			artist: "Legião Urbana",
			want:   "tempo perdido|legião urbana",
		},
		{
			name:   "extra whitespace",
			title:  "  Tempo   Perdido  ",
			artist: "  Legião   Urbana  ",
			want:   "tempo perdido|legião urbana",
		},
		{
			name:   "mixed case",
			title:  "TeMpO PeRdIdO",
			artist: "LEGIÃO urbana",
			want:   "tempo perdido|legião urbana",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tc := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"canção bonita", 6, "canção"},
		{"", 3, ""},
	}

	for _, tt := range tc {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
