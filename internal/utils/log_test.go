package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "non-positive limit yields empty",
			input:  "Dear recruiter",
			limit:  0,
			expect: "",
		},
		{
			name:   "short preview is kept whole",
			input:  "Hi Priya",
			limit:  20,
			expect: "Hi Priya",
		},
		{
			name:   "long preview is cut with ellipsis",
			input:  "Build and operate Spark pipelines",
			limit:  16,
			expect: "Build and operat...",
		},
		{
			name:   "surrounding whitespace is trimmed first",
			input:  "  padded  ",
			limit:  3,
			expect: "pad...",
		},
		{
			name:   "limit counts runes not bytes",
			input:  "नमस्ते दुनिया",
			limit:  6,
			expect: "नमस्ते...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
