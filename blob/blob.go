// Package blob stores uploaded files by key.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// Store puts, fetches and deletes objects by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Key prefixes for the two upload kinds.
const (
	PrefixPDF   = "pdf-files"
	PrefixAudio = "audio-files"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename keeps the base name, replaces anything outside
// [a-zA-Z0-9._-] with an underscore and collapses runs of dots.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 200 {
		name = name[len(name)-200:]
	}
	return name
}

// NewKey builds "<prefix>/<unix-ms>-<sanitized name>".
func NewKey(prefix, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s", prefix, now.UnixMilli(), SanitizeFilename(filename))
}

// ValidKey rejects empty keys and keys that try to escape their prefix.
func ValidKey(key string) error {
	if key == "" {
		return errors.New("blob key is empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
