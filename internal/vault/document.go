// Package vault is the document source: it enumerates markdown notes,
// splits and parses their YAML front matter, fingerprints content, and
// writes headers back atomically.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Document is a single markdown note: its body, its structured header, and a
// fingerprint of the body used to detect whether reprocessing is needed.
type Document struct {
	Path        string
	Content     string         // body with front matter removed
	Header      map[string]any // nil when the note has no front matter
	Fingerprint string         // hex sha256 of Content
}

// Fingerprint returns the hex sha256 of the given content.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Read loads a note from disk. A malformed front matter block returns
// ErrMalformedHeader; the caller must not write anything back in that case.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	header, content, err := ParseFrontMatter(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Document{
		Path:        path,
		Content:     content,
		Header:      header,
		Fingerprint: Fingerprint(content),
	}, nil
}

// Write serializes the document and replaces the file atomically: the bytes
// go to a temp file in the same directory, then rename over the original.
// A note is either fully old or fully new, never half-written.
func Write(doc *Document) error {
	data, err := Serialize(doc.Header, doc.Content)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", doc.Path, err)
	}

	dir := filepath.Dir(doc.Path)
	tmp, err := os.CreateTemp(dir, ".autoglyph-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, doc.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
