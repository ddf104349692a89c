package vault

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedHeader marks a front matter block that exists but cannot be
// parsed as a YAML mapping. Documents with a malformed header are skipped
// with nothing written, to avoid destroying user data.
var ErrMalformedHeader = errors.New("malformed front matter")

var fmDelimiter = []byte("---")

// ParseFrontMatter splits raw note bytes into a header map and body content.
// Notes without a leading front matter fence return a nil header and the full
// body. A fence that opens but never closes, or YAML that is not a mapping,
// returns ErrMalformedHeader.
func ParseFrontMatter(data []byte) (map[string]any, string, error) {
	if !hasFence(data) {
		return nil, string(data), nil
	}

	rest := data[len(fmDelimiter):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	rest = rest[1:] // consume the newline after the opening fence

	end := findClosingFence(rest)
	if end.offset < 0 {
		return nil, "", fmt.Errorf("%w: unterminated front matter fence", ErrMalformedHeader)
	}

	block := rest[:end.offset]
	body := rest[end.offset+end.length:]

	var header map[string]any
	if err := yaml.Unmarshal(block, &header); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	// yaml.Unmarshal accepts scalars and sequences at the top level too;
	// only a mapping is a valid header.
	if header == nil && len(bytes.TrimSpace(block)) > 0 {
		var probe any
		if yaml.Unmarshal(block, &probe) == nil && probe != nil {
			return nil, "", fmt.Errorf("%w: front matter is not a mapping", ErrMalformedHeader)
		}
	}

	return header, strings.TrimPrefix(strings.TrimPrefix(string(body), "\r\n"), "\n"), nil
}

// Serialize renders a header map and body back into note bytes: a fenced
// YAML block, a blank line, then the content. Keys marshal in yaml.v3's
// stable order, so repeated writes of the same header are byte-identical.
func Serialize(header map[string]any, content string) ([]byte, error) {
	var buf bytes.Buffer

	if len(header) > 0 {
		block, err := yaml.Marshal(header)
		if err != nil {
			return nil, fmt.Errorf("marshal header: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(block)
		buf.WriteString("---\n\n")
	}

	buf.WriteString(strings.TrimRight(content, "\n"))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func hasFence(data []byte) bool {
	if !bytes.HasPrefix(data, fmDelimiter) {
		return false
	}
	rest := data[len(fmDelimiter):]
	return len(rest) > 0 && (rest[0] == '\n' || (rest[0] == '\r' && len(rest) > 1 && rest[1] == '\n'))
}

type fencePos struct {
	offset int // start of the closing fence line
	length int // fence line length including trailing newline, if any
}

// findClosingFence locates a line consisting of "---" after the opening
// fence. Returns a negative position when no closing fence exists.
func findClosingFence(data []byte) fencePos {
	offset := 0
	for _, line := range bytes.SplitAfter(data, []byte("\n")) {
		trimmed := bytes.TrimRight(line, "\r\n")
		if bytes.Equal(trimmed, fmDelimiter) {
			return fencePos{offset: offset, length: len(line)}
		}
		offset += len(line)
	}
	return fencePos{offset: -1}
}
