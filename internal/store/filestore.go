package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kiranshivaraju/sitewatch/pkg/models"
)

const artifactExt = ".html"

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileStore implements ResultStore over a flat directory of report
// artifacts. The embedded marker in each artifact is the only index, so
// artifacts added or removed out-of-band are picked up on the next read.
type FileStore struct {
	dir string
	// mu serialises appends so two writers never race on a file name.
	mu sync.Mutex
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the reports directory.
func (s *FileStore) Dir() string { return s.dir }

// Ping checks that the reports directory is still present.
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat reports directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("reports path %q is not a directory", s.dir)
	}
	return nil
}

// Append writes one artifact atomically (temp file + rename) and returns
// its path. A failed write leaves no partial artifact behind.
func (s *FileStore) Append(ctx context.Context, result models.AuditResult, opts AppendOptions) (string, error) {
	if err := validate(result); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	body, err := renderBody(result, opts.Format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	marker, err := encodeMarker(result)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.freePath(result)

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("%w: write body: %v", ErrPersistence, err)
	}
	if _, err := tmp.Write(marker); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("%w: write marker: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: close temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: rename artifact: %v", ErrPersistence, err)
	}

	return path, nil
}

// List scans every artifact and returns the matching records ordered by
// timestamp ascending. Unparseable artifacts are skipped.
func (s *FileStore) List(ctx context.Context, filter Filter) ([]models.AuditResult, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.AuditResult, 0, len(entries))
	for _, e := range entries {
		if filter.TargetID != "" && e.result.TargetID != filter.TargetID {
			continue
		}
		if filter.Since > 0 && e.result.Timestamp < filter.Since {
			continue
		}
		results = append(results, e.result)
	}

	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[len(results)-filter.Limit:]
	}
	return results, nil
}

// LatestPerTarget returns exactly one record per target id: the one with
// the greatest timestamp.
func (s *FileStore) LatestPerTarget(ctx context.Context) (map[string]models.AuditResult, error) {
	entries, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]models.AuditResult)
	for _, e := range entries {
		cur, ok := latest[e.result.TargetID]
		if !ok || e.result.Timestamp >= cur.Timestamp {
			latest[e.result.TargetID] = e.result
		}
	}
	return latest, nil
}

type artifact struct {
	name   string
	result models.AuditResult
}

// scan parses every artifact in the directory, sorted by (timestamp, name).
func (s *FileStore) scan(ctx context.Context) ([]artifact, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var out []artifact
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != artifactExt {
			continue
		}

		result, err := s.readArtifact(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("skipping unreadable artifact", "file", name, "error", err)
			continue
		}
		out = append(out, artifact{name: name, result: result})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].result.Timestamp != out[j].result.Timestamp {
			return out[i].result.Timestamp < out[j].result.Timestamp
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

func (s *FileStore) readArtifact(path string) (models.AuditResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.AuditResult{}, err
	}
	defer f.Close()
	return extractMarker(f)
}

// freePath picks <target>-<timestamp>.html, adding a counter when two
// records share a millisecond. Callers must hold s.mu.
func (s *FileStore) freePath(result models.AuditResult) string {
	base := ArtifactBaseName(result.TargetID, result.Timestamp)
	path := filepath.Join(s.dir, base+artifactExt)
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(s.dir, base+"-"+strconv.Itoa(i)+artifactExt)
	}
}

// ArtifactBaseName derives the file stem shared by an artifact and its
// screenshot.
func ArtifactBaseName(targetID string, timestamp int64) string {
	safe := reUnsafeName.ReplaceAllString(targetID, "_")
	return safe + "-" + strconv.FormatInt(timestamp, 10)
}

func validate(r models.AuditResult) error {
	if r.TargetID == "" {
		return fmt.Errorf("%w: target id is required", ErrInvalidResult)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidResult)
	}
	for _, m := range models.Metrics {
		if v := r.Scores.Get(m); v < 0 || v > 100 {
			return fmt.Errorf("%w: %s score %v out of range", ErrInvalidResult, m, v)
		}
	}
	if r.Uptime.Status != models.StatusUp && r.Uptime.Status != models.StatusDown {
		return fmt.Errorf("%w: uptime status %q", ErrInvalidResult, r.Uptime.Status)
	}
	return nil
}

var _ ResultStore = (*FileStore)(nil)
