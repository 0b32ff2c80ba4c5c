// Package filter provides query parameter parsing and filtering for API endpoints.
package filter

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/fillmap/pkg/fillrun"
)

// Pagination defaults.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// RunFilter contains the filter criteria for run listings.
type RunFilter struct {
	Status     []fillrun.Status
	TemplateID string
	DocumentID string
	Editable   *bool

	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	// Pagination
	Sort   string // id, status, created_at, updated_at
	Order  string // asc, desc
	Limit  int
	Offset int
}

// ParseRunFilter extracts run filter parameters from an HTTP request.
// Unparseable values are ignored.
func ParseRunFilter(r *http.Request) RunFilter {
	q := r.URL.Query()

	f := RunFilter{
		TemplateID: q.Get("template_id"),
		DocumentID: q.Get("document_id"),
		Sort:       q.Get("sort"),
		Order:      strings.ToLower(q.Get("order")),
		Limit:      parseIntOrDefault(q.Get("limit"), DefaultLimit),
		Offset:     parseIntOrDefault(q.Get("offset"), 0),
	}

	if status := q.Get("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if st := fillrun.Status(strings.TrimSpace(s)); st.Valid() {
				f.Status = append(f.Status, st)
			}
		}
	}

	if v := q.Get("editable"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Editable = &b
		}
	}

	if v := q.Get("updated_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.UpdatedAfter = &t
		}
	}
	if v := q.Get("updated_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.UpdatedBefore = &t
		}
	}

	if f.Limit <= 0 || f.Limit > MaxLimit {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Apply filters and sorts runs. Pagination is applied separately by Page.
func (f RunFilter) Apply(runs []*fillrun.FillRun) []*fillrun.FillRun {
	out := make([]*fillrun.FillRun, 0, len(runs))
	for _, run := range runs {
		if f.matches(run) {
			out = append(out, run)
		}
	}
	f.sort(out)
	return out
}

// Page returns the Limit/Offset window of runs.
func (f RunFilter) Page(runs []*fillrun.FillRun) []*fillrun.FillRun {
	if f.Offset >= len(runs) {
		return []*fillrun.FillRun{}
	}
	end := min(f.Offset+f.Limit, len(runs))
	return runs[f.Offset:end]
}

func (f RunFilter) matches(run *fillrun.FillRun) bool {
	if len(f.Status) > 0 && !containsStatus(f.Status, run.Status) {
		return false
	}
	if f.TemplateID != "" && run.TemplateID != f.TemplateID {
		return false
	}
	if f.DocumentID != "" && run.DocumentID != f.DocumentID {
		return false
	}
	if f.Editable != nil && run.Status.Editable() != *f.Editable {
		return false
	}
	if f.UpdatedAfter != nil && run.UpdatedAt.Time.Before(*f.UpdatedAfter) {
		return false
	}
	if f.UpdatedBefore != nil && run.UpdatedAt.Time.After(*f.UpdatedBefore) {
		return false
	}
	return true
}

// sort orders runs in place; the default is by id ascending.
func (f RunFilter) sort(runs []*fillrun.FillRun) {
	var less func(a, b *fillrun.FillRun) bool
	switch f.Sort {
	case "status":
		less = func(a, b *fillrun.FillRun) bool { return a.Status < b.Status }
	case "created_at":
		less = func(a, b *fillrun.FillRun) bool { return a.CreatedAt.Time.Before(b.CreatedAt.Time) }
	case "updated_at":
		less = func(a, b *fillrun.FillRun) bool { return a.UpdatedAt.Time.Before(b.UpdatedAt.Time) }
	default:
		less = func(a, b *fillrun.FillRun) bool { return a.ID < b.ID }
	}
	desc := f.Order == "desc"
	sort.SliceStable(runs, func(i, j int) bool {
		if desc {
			return less(runs[j], runs[i])
		}
		return less(runs[i], runs[j])
	})
}

func containsStatus(list []fillrun.Status, s fillrun.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// parseIntOrDefault parses an integer or returns default.
func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}
