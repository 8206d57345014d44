package mock

import (
	"context"

	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
)

type Scraper struct {
	Entries []fixes.Entry
	Err     error
	Calls   int
}

func (s *Scraper) Scrape(ctx context.Context) ([]fixes.Entry, error) {
	_ = ctx
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Entries, nil
}
