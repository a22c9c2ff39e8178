package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/amishk599/jobfacet/internal/model"
)

const (
	resultsPrefix = "pipeline_results_"
	resultsLayout = "20060102_150405"
)

// JSONFileSink writes each run to dir/pipeline_results_YYYYMMDD_HHMMSS.json.
type JSONFileSink struct {
	dir string
	now func() time.Time
}

var _ model.Sink = (*JSONFileSink)(nil)

// NewJSONFileSink returns a sink writing into dir, creating it on first write.
func NewJSONFileSink(dir string) *JSONFileSink {
	return &JSONFileSink{dir: dir, now: time.Now}
}

// Write implements model.Sink.
func (s *JSONFileSink) Write(_ context.Context, postings []model.EnrichedPosting) error {
	_, err := s.WriteFile(postings)
	return err
}

// WriteFile writes postings and returns the path written.
func (s *JSONFileSink) WriteFile(postings []model.EnrichedPosting) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if postings == nil {
		postings = []model.EnrichedPosting{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(postings); err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	path := filepath.Join(s.dir, resultsPrefix+s.now().Format(resultsLayout)+".json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

// ListResultsFiles returns the pipeline_results files in dir, newest first.
func ListResultsFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), resultsPrefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	// The timestamp layout sorts lexically.
	slices.Sort(names)
	slices.Reverse(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// LatestResultsFile returns the newest pipeline_results file in dir.
func LatestResultsFile(dir string) (string, error) {
	paths, err := ListResultsFiles(dir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no %s*.json file in %s", resultsPrefix, dir)
	}
	return paths[0], nil
}

// ReadResults loads a results file written by JSONFileSink.
func ReadResults(path string) ([]model.EnrichedPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var postings []model.EnrichedPosting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	for i := range postings {
		postings[i].Facets = postings[i].Facets.Normalize()
	}
	return postings, nil
}
