package store

import (
	"context"
	"time"

	"github.com/amishk599/jobfacet/internal/model"
)

// NopStore is used when no database is configured or in dry-run mode.
type NopStore struct{}

var _ model.ResultStore = NopStore{}

func (NopStore) Save(context.Context, []model.EnrichedPosting) error { return nil }
func (NopStore) Cleanup(time.Duration) error                        { return nil }
