package domain

import (
	"slices"
	"time"
)

// ProgressState is the durable cursor over the crawl's title universe.
// It is a plain value: the orchestrator receives one, advances it, and
// hands it back; nothing else holds crawl progress.
type ProgressState struct {
	RunID           string      `json:"run_id"`
	TotalTitles     int         `json:"total_titles"`
	ProcessedTitles []PageTitle `json:"processed_titles"`
	LastCursor      PageTitle   `json:"last_cursor,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CleanStart      bool        `json:"clean_start"`

	processed map[PageTitle]struct{}
}

// NewProgressState returns a fresh state over a universe of total titles.
func NewProgressState(runID string, total int, cleanStart bool, now time.Time) ProgressState {
	return ProgressState{
		RunID:       runID,
		TotalTitles: total,
		StartedAt:   now,
		UpdatedAt:   now,
		CleanStart:  cleanStart,
	}
}

func (s *ProgressState) index() {
	if s.processed != nil {
		return
	}
	s.processed = make(map[PageTitle]struct{}, len(s.ProcessedTitles))
	for _, t := range s.ProcessedTitles {
		s.processed[t] = struct{}{}
	}
}

// IsProcessed reports whether title already completed in this or a prior run.
func (s *ProgressState) IsProcessed(title PageTitle) bool {
	s.index()
	_, ok := s.processed[title]
	return ok
}

// MarkProcessed appends titles not yet recorded and moves the cursor to the
// last one. ProcessedTitles only grows.
func (s *ProgressState) MarkProcessed(now time.Time, titles ...PageTitle) {
	s.index()
	for _, t := range titles {
		if _, ok := s.processed[t]; ok {
			continue
		}
		s.processed[t] = struct{}{}
		s.ProcessedTitles = append(s.ProcessedTitles, t)
	}
	if len(titles) > 0 {
		s.LastCursor = titles[len(titles)-1]
	}
	s.UpdatedAt = now
}

// Pending returns the titles of universe not processed yet, in universe order.
func (s *ProgressState) Pending(universe []PageTitle) []PageTitle {
	s.index()
	out := make([]PageTitle, 0, len(universe))
	for _, t := range universe {
		if _, ok := s.processed[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy safe to mutate independently.
func (s ProgressState) Clone() ProgressState {
	c := s
	c.ProcessedTitles = slices.Clone(s.ProcessedTitles)
	c.processed = nil
	return c
}
