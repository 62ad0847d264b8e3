package platform

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const (
	apiJobsPath     = "/jobs"
	completedStatus = "completed"
	dateLayout      = "2006-01-02"
)

// Job is a completed job with the supplier who delivered it.
type Job struct {
	ID          string       `json:"id" mapstructure:"id"`
	Title       string       `json:"title" mapstructure:"title"`
	Supplier    RosterMember `json:"supplier" mapstructure:"supplier"`
	Units       int          `json:"units" mapstructure:"units"`
	Amount      float64      `json:"amount" mapstructure:"amount"`
	Currency    string       `json:"currency" mapstructure:"currency"`
	CompletedAt string       `json:"completed_at" mapstructure:"completed_at"`
}

type Jobs struct {
	Items []*Job
}

// CompletedJobs fetches jobs completed between from and to, both inclusive.
func (c *Client) CompletedJobs(ctx context.Context, from, to time.Time) (*Jobs, error) {
	if !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("invalid period: %s is before %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	q := url.Values{}
	q.Set("status", completedStatus)
	if !from.IsZero() {
		q.Set("date_from", from.Format(dateLayout))
	}
	if !to.IsZero() {
		q.Set("date_to", to.Format(dateLayout))
	}

	items, err := c.GetItems(ctx, fmt.Sprintf("%s%s", c.APIURL, apiJobsPath), q)
	if err != nil {
		return nil, fmt.Errorf("fetching completed jobs: %w", err)
	}

	var jobs []*Job
	if err := decodeItems(items, &jobs); err != nil {
		return nil, fmt.Errorf("decoding completed jobs: %w", err)
	}

	return &Jobs{Items: jobs}, nil
}

func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

// Roster folds jobs into one member per supplier, summing completed units.
// Members keep the order in which their first job appears.
func (j *Jobs) Roster() *Roster {
	roster := &Roster{}
	if j == nil {
		return roster
	}

	byID := map[string]*RosterMember{}
	for _, job := range j.Items {
		id := job.Supplier.ExternalID
		if id == "" {
			continue
		}
		member, ok := byID[id]
		if !ok {
			copied := job.Supplier
			copied.Languages = append([]string(nil), job.Supplier.Languages...)
			copied.CompletedUnits = 0
			member = &copied
			byID[id] = member
			roster.Items = append(roster.Items, member)
		}
		member.CompletedUnits += job.Units
		member.Languages = mergeLanguages(member.Languages, job.Supplier.Languages)
	}

	return roster
}

func mergeLanguages(have, add []string) []string {
	seen := make(map[string]struct{}, len(have))
	for _, l := range have {
		seen[l] = struct{}{}
	}
	for _, l := range add {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		have = append(have, l)
	}
	return have
}
