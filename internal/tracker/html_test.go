package tracker

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain text", "no markup here", "no markup here"},
		{"simple tags", "<div><b>bold</b> and <i>italic</i></div>", "bold and italic"},
		{"nested lists", "<ul><li>first</li><li>second</li></ul>", "first second"},
		{"script dropped", "<p>visible</p><script>alert(1)</script>", "visible"},
		{"style dropped", "<style>p{color:red}</style><p>text</p>", "text"},
		{"whitespace collapsed", "<p>a</p>\n\n  <p>b</p>", "a b"},
		{"entities decoded", "<p>fish &amp; chips</p>", "fish & chips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := collapseWhitespace("  a \t b\n\nc "); got != "a b c" {
		t.Errorf("collapseWhitespace() = %q", got)
	}
}
