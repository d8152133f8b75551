package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "trims and drops empty", input: []string{" Careers ", "", "  "}, want: []string{"Careers"}},
		{name: "case-insensitive dedupe keeps first", input: []string{"Resume", "resume", "RESUME"}, want: []string{"Resume"}},
		{name: "strips markup", input: []string{"<b>Tech</b>", "Finance"}, want: []string{"Tech", "Finance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTags(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeTags(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeStringSlice_CustomNormalizer(t *testing.T) {
	got := NormalizeStringSlice([]string{"A@x.io", "a@x.io", "b@x.io"}, NormalizeEmail)
	want := []string{"a@x.io", "b@x.io"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
