package sanitizer

import "testing"

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already clean", "john@example.com", "john@example.com"},
		{"upper case", "John.Doe@Example.COM", "john.doe@example.com"},
		{"surrounding spaces", "  john@example.com \t", "john@example.com"},
		{"inner spaces", "john @example .com", "john@example.com"},
		{"blank", "   ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeEmail(tt.input); got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFullName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  John Doe  ", "John Doe"},
		{"multiple spaces between words", "John    Doe", "John Doe"},
		{"tabs and newlines", "John\t\nDoe", "John Doe"},
		{"keeps case", "McDONALD", "McDONALD"},
		{"unicode", " Zoë Ünal ", "Zoë Ünal"},
		{"only whitespace", "   \t\n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFullName(tt.input); got != tt.want {
				t.Errorf("SanitizeFullName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "a" },
		func(s string) string { return s + "b" },
	}
	if got := p.Apply(""); got != "ab" {
		t.Errorf("Apply() = %q, want %q", got, "ab")
	}
}
