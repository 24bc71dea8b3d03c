package pipeline

import "testing"

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3:32", 212},
		{"0:07", 7},
		{"1:02:03", 3723},
		{"45", 45},
		{"", 0},
		{"abc", 0},
		{"1:xx", 0},
		{"-5", 0},
	}
	for _, tc := range cases {
		if got := ParseClock(tc.in); got != tc.want {
			t.Errorf("ParseClock(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{212, "3:32"},
		{7, "0:07"},
		{0, "0:00"},
		{3723, "62:03"},
		{-10, "0:00"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.in); got != tc.want {
			t.Errorf("FormatClock(%d): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, seconds := range []int{0, 7, 59, 60, 212, 3600} {
		if got := ParseClock(FormatClock(seconds)); got != seconds {
			t.Errorf("round trip of %d gave %d", seconds, got)
		}
	}
}

func TestNewMetadataDerivesDisplay(t *testing.T) {
	meta := NewMetadata("Song", 212, "dQw4w9WgXcQ", "", "Artist")
	if meta.DurationDisplay != "3:32" {
		t.Fatalf("expected 3:32, got %q", meta.DurationDisplay)
	}
}

func TestNewMetadataClampsNegativeDuration(t *testing.T) {
	meta := NewMetadata("Song", -3, "id123456789", "", "")
	if meta.DurationSeconds != 0 || meta.DurationDisplay != "0:00" {
		t.Fatalf("expected clamped duration, got %+v", meta)
	}
}

func TestSentinelMetadata(t *testing.T) {
	meta := SentinelMetadata()
	if !meta.IsSentinel() {
		t.Fatal("sentinel must report IsSentinel")
	}
	if meta.Title != UnknownTitle {
		t.Fatalf("expected %q, got %q", UnknownTitle, meta.Title)
	}
	real := NewMetadata("Song", 10, "dQw4w9WgXcQ", "", "")
	if real.IsSentinel() {
		t.Fatal("real metadata must not report IsSentinel")
	}
}
