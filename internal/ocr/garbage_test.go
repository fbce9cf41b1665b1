package ocr

import (
	"strings"
	"testing"
)

const readableReport = `Complete Blood Count
Hemoglobin 13.5 g/dL (Reference: 12.0 - 16.0)
WBC Count 7200 /uL (Reference: 4000 - 11000)
Platelet Count 250000 /uL (Reference: 150000 - 450000)`

func TestIsGarbageText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "readable lab report",
			text: readableReport,
			want: false,
		},
		{
			name: "empty string",
			text: "",
			want: true,
		},
		{
			name: "whitespace only",
			text: "   \n\n\t  \n",
			want: true,
		},
		{
			name: "shorter than minimum length",
			text: "Hemoglobin 13.5",
			want: true,
		},
		{
			name: "mostly non-alphanumeric",
			text: strings.Repeat("#$ %& *@ !? ^~ ", 10) + "Hb 13",
			want: true,
		},
		{
			name: "long run of repeated letters",
			text: "Hemoglobin 13.5 g/dL xxxxx WBC 7200 Platelets 250000 within range",
			want: true,
		},
		{
			name: "long run of repeated digits allowed",
			text: "Patient ID 1111111 Hemoglobin 13.5 g/dL WBC 7200 Platelets 250000",
			want: false,
		},
		{
			name: "long run of special characters",
			text: "Hemoglobin 13.5 g/dL @#$%^ WBC 7200 Platelets 250000 within range",
			want: true,
		},
		{
			name: "low digit density passes through",
			text: "The patient presented with mild fatigue and was advised to repeat the panel after two weeks of rest.",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGarbageText(tt.text); got != tt.want {
				t.Errorf("IsGarbageText(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestHasRepeatedRun(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"aaaa", false},
		{"aaaaa", true},
		{"1111111", false},
		{"ab ab ab ab ab", false},
		{"-----", true},
	}

	for _, tt := range tests {
		if got := hasRepeatedRun(tt.text); got != tt.want {
			t.Errorf("hasRepeatedRun(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSupportedType(t *testing.T) {
	for _, ft := range []string{"pdf", "jpg", "jpeg", "png", "webp"} {
		if !SupportedType(ft) {
			t.Errorf("SupportedType(%q) = false, want true", ft)
		}
	}
	for _, ft := range []string{"gif", "docx", "txt", ""} {
		if SupportedType(ft) {
			t.Errorf("SupportedType(%q) = true, want false", ft)
		}
	}
}

func TestNormalizeFileType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"report.PDF", "pdf"},
		{"scan.jpeg", "jpg"},
		{"photo.JPG", "jpg"},
		{"upload.webp", "webp"},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := NormalizeFileType(tt.name); got != tt.want {
			t.Errorf("NormalizeFileType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
