package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const markerPrefix = "MAINTENANCE_METADATA:"

// encodeMarker renders the single-line metadata comment appended to every
// artifact. encoding/json escapes <, > and & so the payload can never close
// the comment early.
func encodeMarker(result models.AuditResult) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal marker: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 32)
	buf.WriteString("<!-- ")
	buf.WriteString(markerPrefix)
	buf.Write(payload)
	buf.WriteString(" -->\n")
	return buf.Bytes(), nil
}

// extractMarker tokenizes an artifact and decodes its metadata comment.
// Exactly one marker must be present.
func extractMarker(r io.Reader) (models.AuditResult, error) {
	var (
		found   int
		payload string
	)

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return models.AuditResult{}, fmt.Errorf("tokenize artifact: %w", err)
			}
			break
		}
		if tt != html.CommentToken {
			continue
		}
		text := strings.TrimSpace(string(z.Text()))
		if !strings.HasPrefix(text, markerPrefix) {
			continue
		}
		found++
		payload = strings.TrimPrefix(text, markerPrefix)
	}

	switch {
	case found == 0:
		return models.AuditResult{}, ErrNoMarker
	case found > 1:
		return models.AuditResult{}, fmt.Errorf("%w: found %d", ErrManyMarkers, found)
	}

	var result models.AuditResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return models.AuditResult{}, fmt.Errorf("decode marker: %w", err)
	}
	return result, nil
}
