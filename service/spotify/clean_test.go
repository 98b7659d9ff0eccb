package spotify

import "testing"

func TestTitleCleaner(t *testing.T) {
	cleaner := NewTitleCleaner()

	tests := []struct {
		in          string
		want        string
		wantChanged bool
	}{
		{in: "Mr. Brightside", want: "Mr. Brightside"},
		{in: "  Mr. Brightside  ", want: "Mr. Brightside"},
		{in: "Here Comes the Sun (Remastered 2009)", want: "Here Comes the Sun", wantChanged: true},
		{in: "Song A [Live]", want: "Song A", wantChanged: true},
		{in: "Song A (feat. Someone)", want: "Song A", wantChanged: true},
		{in: "Song A ft. Someone", want: "Song A", wantChanged: true},
		{in: "Song A - 2011 Remaster", want: "Song A", wantChanged: true},
		{in: "Blue (Da Ba Dee)", want: "Blue (Da Ba Dee)"},
		{in: "Anti-Hero", want: "Anti-Hero"},
		{in: "Song A (Live", want: "Song A (Live"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, changed := cleaner.Clean(tt.in)
			if got != tt.want || changed != tt.wantChanged {
				t.Errorf("Clean(%q) = %q, %t; want %q, %t", tt.in, got, changed, tt.want, tt.wantChanged)
			}
		})
	}
}
