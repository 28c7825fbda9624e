// Package view keeps the user's place in the settlement list: the search
// query, the page size and the current page.
package view

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/mr1hm/go-settlements/internal/models"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 500
)

type Lister interface {
	All() []models.Settlement
}

// TriggerFunc is called with the ids of the visible page every time it
// changes.
type TriggerFunc func(ids []string)

// Page is a consistent snapshot of the view.
type Page struct {
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
	Total      int                 `json:"total"`
	Query      string              `json:"query"`
	Items      []models.Settlement `json:"items"`
}

// maxFolds bounds the memo of case-folded names.
const maxFolds = 1 << 16

type View struct {
	repo    Lister
	trigger TriggerFunc

	mu      sync.Mutex
	query   string
	folded  string
	page    int
	perPage int
	caser   cases.Caser
	folds   map[string]string
}

func New(repo Lister, trigger TriggerFunc, perPage int) *View {
	if perPage < 1 || perPage > MaxPerPage {
		perPage = DefaultPerPage
	}
	if trigger == nil {
		trigger = func([]string) {}
	}
	return &View{
		repo:    repo,
		trigger: trigger,
		page:    1,
		perPage: perPage,
		caser:   cases.Fold(),
		folds:   make(map[string]string),
	}
}

// foldLocked returns the case-folded form of s, computing it once per
// distinct string.
func (v *View) foldLocked(s string) string {
	if f, ok := v.folds[s]; ok {
		return f
	}
	if len(v.folds) >= maxFolds {
		clear(v.folds)
	}
	f := v.caser.String(s)
	v.folds[s] = f
	return f
}

// filteredLocked returns the settlements whose name or display name
// contains the query, ignoring case, in source order.
func (v *View) filteredLocked() []models.Settlement {
	all := v.repo.All()
	if v.folded == "" {
		return all
	}
	out := make([]models.Settlement, 0, len(all))
	for _, s := range all {
		if strings.Contains(v.foldLocked(s.Name), v.folded) || strings.Contains(v.foldLocked(s.DisplayName), v.folded) {
			out = append(out, s)
		}
	}
	return out
}

// totalPages is never less than 1, even for an empty result.
func totalPages(n, perPage int) int {
	pages := (n + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

func visible(filtered []models.Settlement, page, perPage int) []models.Settlement {
	start := (page - 1) * perPage
	if start >= len(filtered) {
		return []models.Settlement{}
	}
	end := min(start+perPage, len(filtered))
	return filtered[start:end]
}

func (v *View) Visible() []models.Settlement {
	v.mu.Lock()
	defer v.mu.Unlock()
	return visible(v.filteredLocked(), v.page, v.perPage)
}

func (v *View) Snapshot() Page {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := v.filteredLocked()
	return Page{
		Page:       v.page,
		PerPage:    v.perPage,
		TotalPages: totalPages(len(filtered), v.perPage),
		Total:      len(filtered),
		Query:      v.query,
		Items:      visible(filtered, v.page, v.perPage),
	}
}

// update runs fn under the lock and, if it reports a change, triggers
// enrichment of the resulting page.
func (v *View) update(fn func(total int) bool) bool {
	v.mu.Lock()
	if !fn(totalPages(len(v.filteredLocked()), v.perPage)) {
		v.mu.Unlock()
		return false
	}
	items := visible(v.filteredLocked(), v.page, v.perPage)
	v.mu.Unlock()

	ids := make([]string, len(items))
	for i, s := range items {
		ids[i] = s.ID
	}
	v.trigger(ids)
	return true
}

func (v *View) Next() bool {
	return v.update(func(total int) bool {
		if v.page >= total {
			return false
		}
		v.page++
		return true
	})
}

func (v *View) Prev() bool {
	return v.update(func(total int) bool {
		if v.page <= 1 {
			return false
		}
		v.page--
		return true
	})
}

// GoTo moves to page n. Pages outside 1..TotalPages are ignored.
func (v *View) GoTo(n int) bool {
	return v.update(func(total int) bool {
		if n < 1 || n > total {
			return false
		}
		v.page = n
		return true
	})
}

// SetPageSize changes the page size and returns to the first page.
func (v *View) SetPageSize(n int) bool {
	return v.update(func(int) bool {
		if n < 1 || n > MaxPerPage {
			return false
		}
		v.perPage = n
		v.page = 1
		return true
	})
}

// SetQuery changes the search filter. The current page is kept unless the
// filtered list no longer reaches it.
func (v *View) SetQuery(q string) bool {
	return v.update(func(int) bool {
		v.query = q
		v.folded = v.caser.String(q)
		if v.page > totalPages(len(v.filteredLocked()), v.perPage) {
			v.page = 1
		}
		return true
	})
}

// Refresh triggers enrichment of the current page, first moving back to
// page 1 if the collection shrank below it.
func (v *View) Refresh() {
	v.update(func(total int) bool {
		if v.page > total {
			v.page = 1
		}
		return true
	})
}
