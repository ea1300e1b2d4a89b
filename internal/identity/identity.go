// Package identity derives stable, filesystem-safe record keys from job
// attributes and parses them back.
package identity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp encoding used inside folder names.
const TimeLayout = "20060102-150405"

// Placeholder is substituted when sanitization would yield an empty string.
// An empty component would let two different jobs collide on the same path.
const Placeholder = "unknown"

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Identity names a single job application. Company and Title are arbitrary
// user text and are sanitized before appearing in any path or key; JobID is
// unique across all phases combined.
type Identity struct {
	Company  string    `json:"company" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	PostedAt time.Time `json:"posted_at"`
	JobID    string    `json:"job_id" validate:"required"`
}

// Sanitize maps any run of non-alphanumeric characters to a single
// underscore, strips leading and trailing underscores, and never returns an
// empty string. Only ASCII letters and digits survive.
func Sanitize(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	if b.Len() == 0 {
		return Placeholder
	}
	return b.String()
}

// SanitizeID keeps externally supplied job IDs path- and parse-safe.
// Unlike Sanitize it preserves hyphens, so UUID-shaped IDs round-trip.
func SanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return Placeholder
	}
	return b.String()
}

// NewJobID returns a fresh candidate job ID. Uniqueness against existing
// records is enforced by the store's reservation step, not here.
func NewJobID() string {
	return uuid.NewString()
}

// FolderName encodes an identity as
// {sanitize(company)}.{sanitize(title)}.{YYYYMMDD-HHMMSS}.{jobID}.
// The encoding is deterministic and reversible via Parse.
func FolderName(id Identity) string {
	return fmt.Sprintf("%s.%s.%s.%s",
		Sanitize(id.Company),
		Sanitize(id.Title),
		id.PostedAt.UTC().Format(TimeLayout),
		SanitizeID(id.JobID),
	)
}

// NotParseableError reports a folder name that does not follow the
// FolderName encoding.
type NotParseableError struct {
	Name   string
	Reason string
}

func (e *NotParseableError) Error() string {
	return fmt.Sprintf("folder name %q not parseable: %s", e.Name, e.Reason)
}

// Parse is the inverse of FolderName. Company and Title come back in their
// sanitized form; sanitization is lossy by design, so the round trip holds on
// the sanitized values rather than the original text.
func Parse(name string) (Identity, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 4 {
		return Identity{}, &NotParseableError{Name: name, Reason: fmt.Sprintf("expected 4 dot-separated fields, got %d", len(parts))}
	}
	for i, p := range parts {
		if p == "" {
			return Identity{}, &NotParseableError{Name: name, Reason: fmt.Sprintf("field %d is empty", i+1)}
		}
	}

	postedAt, err := time.ParseInLocation(TimeLayout, parts[2], time.UTC)
	if err != nil {
		return Identity{}, &NotParseableError{Name: name, Reason: fmt.Sprintf("bad timestamp %q", parts[2])}
	}
	if !jobIDPattern.MatchString(parts[3]) {
		return Identity{}, &NotParseableError{Name: name, Reason: fmt.Sprintf("bad job id %q", parts[3])}
	}

	return Identity{
		Company:  parts[0],
		Title:    parts[1],
		PostedAt: postedAt,
		JobID:    parts[3],
	}, nil
}
