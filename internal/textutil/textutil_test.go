package textutil

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ahmed  mohamed", "Ahmed Mohamed"},
		{"FATMA HASSAN", "Fatma Hassan"},
		{"  omar khaled ", "Omar Khaled"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`exam:*clip?.mp4`); got != "exam--clip.mp4" {
		t.Errorf("unexpected sanitized name %q", got)
	}
	if got := SanitizeFileName("  "); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("History of hypertension.", 10); got != "History..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged value, got %q", got)
	}
}
