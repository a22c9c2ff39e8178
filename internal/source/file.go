package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amishk599/jobfacet/internal/model"
)

var _ model.PostingSource = (*FileSource)(nil)

// FileSource replays a saved scrape: a JSON array of postings.
type FileSource struct {
	name string
	path string
}

// NewFileSource returns a source reading path on every fetch.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

// Name implements model.PostingSource.
func (s *FileSource) Name() string { return s.name }

// FetchPostings implements model.PostingSource. Empty fields become "N/A"
// and an empty source is set to the source name.
func (s *FileSource) FetchPostings(_ context.Context) ([]model.Posting, error) {
	return ReadPostings(s.path, s.name)
}

// ReadPostings loads a JSON array of postings from path.
func ReadPostings(path, sourceName string) ([]model.Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read postings: %w", err)
	}
	var postings []model.Posting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("parse postings %s: %w", path, err)
	}
	for i := range postings {
		p := &postings[i]
		for _, field := range []*string{&p.Title, &p.URL, &p.Company, &p.Location, &p.PublishDate, &p.Description} {
			if *field == "" {
				*field = model.NotAvailable
			}
		}
		if p.Source == "" {
			p.Source = sourceName
		}
	}
	return postings, nil
}
