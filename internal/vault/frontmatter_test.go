package vault

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader map[string]any
		wantBody   string
	}{
		{
			name:     "no front matter",
			input:    "# Morning\n\nSome thoughts.\n",
			wantBody: "# Morning\n\nSome thoughts.\n",
		},
		{
			name:       "simple header",
			input:      "---\ntitle: Morning\n---\n\nSome thoughts.\n",
			wantHeader: map[string]any{"title": "Morning"},
			wantBody:   "Some thoughts.\n",
		},
		{
			name:       "header with list",
			input:      "---\ntitle: Morning\ntags:\n  - draft\n  - journal\n---\n\nBody.\n",
			wantHeader: map[string]any{"title": "Morning", "tags": []any{"draft", "journal"}},
			wantBody:   "Body.\n",
		},
		{
			name:       "no blank line after fence",
			input:      "---\ntitle: X\n---\nBody.\n",
			wantHeader: map[string]any{"title": "X"},
			wantBody:   "Body.\n",
		},
		{
			name:       "empty header block",
			input:      "---\n---\n\nBody.\n",
			wantHeader: nil,
			wantBody:   "Body.\n",
		},
		{
			name:     "dashes mid-document are not a fence",
			input:    "First line\n---\nSecond line\n",
			wantBody: "First line\n---\nSecond line\n",
		},
		{
			name:       "crlf line endings",
			input:      "---\r\ntitle: X\r\n---\r\nBody.\r\n",
			wantHeader: map[string]any{"title": "X"},
			wantBody:   "Body.\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, err := ParseFrontMatter([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseFrontMatter: %v", err)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if len(header) != len(tt.wantHeader) {
				t.Fatalf("header = %v, want %v", header, tt.wantHeader)
			}
			for k, want := range tt.wantHeader {
				got := header[k]
				switch w := want.(type) {
				case []any:
					g, ok := got.([]any)
					if !ok || len(g) != len(w) {
						t.Errorf("header[%q] = %v, want %v", k, got, want)
						continue
					}
					for i := range w {
						if g[i] != w[i] {
							t.Errorf("header[%q][%d] = %v, want %v", k, i, g[i], w[i])
						}
					}
				default:
					if got != want {
						t.Errorf("header[%q] = %v, want %v", k, got, want)
					}
				}
			}
		})
	}
}

func TestParseFrontMatterMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated fence", "---\ntitle: X\n\nBody with no closing fence.\n"},
		{"tab indentation", "---\ntitle: X\n\tbad: yaml\n---\n\nBody.\n"},
		{"scalar header", "---\njust a string\n---\n\nBody.\n"},
		{"sequence header", "---\n- a\n- b\n---\n\nBody.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFrontMatter([]byte(tt.input))
			if !errors.Is(err, ErrMalformedHeader) {
				t.Errorf("err = %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	header := map[string]any{
		"title": "Morning",
		"tags":  []any{"draft"},
	}
	content := "Some thoughts about the day."

	data, err := Serialize(header, content)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	gotHeader, gotBody, err := ParseFrontMatter(data)
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if gotHeader["title"] != "Morning" {
		t.Errorf("title = %v, want Morning", gotHeader["title"])
	}
	if strings.TrimRight(gotBody, "\n") != content {
		t.Errorf("body = %q, want %q", gotBody, content)
	}
}

func TestSerializeStable(t *testing.T) {
	header := map[string]any{
		"title":       "Morning",
		"glyphstream": []string{"∷", "🜁"},
		"stream_type": "personal",
	}

	first, err := Serialize(header, "Body.")
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	second, err := Serialize(header, "Body.")
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("repeated serialization differs:\n%s\n---\n%s", first, second)
	}
}

func TestSerializeNoHeader(t *testing.T) {
	data, err := Serialize(nil, "Just a body.")
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(data) != "Just a body.\n" {
		t.Errorf("got %q", data)
	}
}
