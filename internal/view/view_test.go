package view

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mr1hm/go-settlements/internal/models"
)

type fakeRepo struct {
	mu    sync.Mutex
	items []models.Settlement
}

func (f *fakeRepo) All() []models.Settlement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Settlement(nil), f.items...)
}

func newFakeRepo(n int) *fakeRepo {
	f := &fakeRepo{}
	for i := 0; i < n; i++ {
		f.items = append(f.items, models.Settlement{
			ID:   fmt.Sprintf("s%d", i),
			Name: fmt.Sprintf("Village %d", i),
		})
	}
	return f
}

type recorder struct {
	calls [][]string
}

func (r *recorder) trigger(ids []string) {
	r.calls = append(r.calls, ids)
}

func (r *recorder) last() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestView_Pagination(t *testing.T) {
	rec := &recorder{}
	v := New(newFakeRepo(45), rec.trigger, 20)

	if p := v.Snapshot(); p.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.TotalPages)
	}
	if n := len(v.Visible()); n != 20 {
		t.Errorf("expected 20 visible, got %d", n)
	}

	if !v.GoTo(3) {
		t.Fatal("expected GoTo(3) to succeed")
	}
	visible := v.Visible()
	if len(visible) != 5 || visible[0].ID != "s40" {
		t.Errorf("expected s40..s44, got %d items starting at %s", len(visible), visible[0].ID)
	}
	if ids := rec.last(); len(ids) != 5 || ids[0] != "s40" {
		t.Errorf("expected trigger for last page, got %v", ids)
	}

	calls := len(rec.calls)
	if v.GoTo(4) {
		t.Error("expected GoTo(4) to fail")
	}
	if v.GoTo(0) {
		t.Error("expected GoTo(0) to fail")
	}
	if p := v.Snapshot(); p.Page != 3 {
		t.Errorf("expected page to stay 3, got %d", p.Page)
	}
	if v.Next() {
		t.Error("expected Next on last page to fail")
	}
	if len(rec.calls) != calls {
		t.Error("expected no trigger for rejected navigation")
	}

	if !v.Prev() {
		t.Error("expected Prev to succeed")
	}
	if p := v.Snapshot(); p.Page != 2 {
		t.Errorf("expected Prev to move to page 2, at %d", p.Page)
	}
	if rec.last()[0] != "s20" {
		t.Errorf("expected trigger for page 2, got %v", rec.last())
	}
}

func TestView_PrevOnFirstPage(t *testing.T) {
	v := New(newFakeRepo(5), nil, 20)

	if v.Prev() {
		t.Error("expected Prev on first page to fail")
	}
	if p := v.Snapshot(); p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
}

func TestView_EmptyCollection(t *testing.T) {
	v := New(newFakeRepo(0), nil, 20)

	p := v.Snapshot()
	if p.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", p.TotalPages)
	}
	if len(p.Items) != 0 {
		t.Errorf("expected nothing visible, got %d", len(p.Items))
	}
	if v.Next() {
		t.Error("expected Next to fail on empty collection")
	}
}

func TestView_SetPageSize(t *testing.T) {
	rec := &recorder{}
	v := New(newFakeRepo(45), rec.trigger, 20)
	v.GoTo(2)

	if !v.SetPageSize(50) {
		t.Fatal("expected SetPageSize(50) to succeed")
	}
	p := v.Snapshot()
	if p.Page != 1 || p.PerPage != 50 {
		t.Errorf("expected page 1 of size 50, got page %d size %d", p.Page, p.PerPage)
	}
	if p.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", p.TotalPages)
	}
	if len(rec.last()) != 45 {
		t.Errorf("expected trigger for 45 ids, got %d", len(rec.last()))
	}

	for _, n := range []int{0, -1, MaxPerPage + 1} {
		if v.SetPageSize(n) {
			t.Errorf("expected SetPageSize(%d) to fail", n)
		}
	}
	if p := v.Snapshot(); p.PerPage != 50 {
		t.Errorf("expected size to stay 50, got %d", p.PerPage)
	}
}

func TestView_SetQuery(t *testing.T) {
	repo := newFakeRepo(45)
	repo.items[41].Name = "Київ"
	repo.items[42].Name = "Біла Церква"
	rec := &recorder{}
	v := New(repo, rec.trigger, 20)
	v.GoTo(3)

	if !v.SetQuery("КИЇВ") {
		t.Fatal("expected SetQuery to succeed")
	}
	p := v.Snapshot()
	if p.Page != 1 {
		t.Errorf("expected page reset to 1, got %d", p.Page)
	}
	if p.Total != 1 || p.Items[0].ID != "s41" {
		t.Errorf("expected only s41, got %+v", p.Items)
	}
	if ids := rec.last(); len(ids) != 1 || ids[0] != "s41" {
		t.Errorf("expected trigger for s41, got %v", ids)
	}
	if p.Query != "КИЇВ" {
		t.Errorf("expected query to be kept verbatim, got %q", p.Query)
	}

	repo.items[7].DisplayName = "Бровари, Київська область"
	v.SetQuery("київськ")
	if p := v.Snapshot(); p.Total != 1 || p.Items[0].ID != "s7" {
		t.Errorf("expected display name match s7, got %+v", p.Items)
	}
}

func TestView_SetQueryKeepsReachablePage(t *testing.T) {
	v := New(newFakeRepo(45), nil, 20)
	v.GoTo(2)

	// "village" matches all 45
	v.SetQuery("village")
	if p := v.Snapshot(); p.Page != 2 {
		t.Errorf("expected page 2 to be kept, got %d", p.Page)
	}

	v.SetQuery("nothing matches")
	if p := v.Snapshot(); p.Page != 1 || p.TotalPages != 1 || len(p.Items) != 0 {
		t.Errorf("unexpected state: page %d of %d", p.Page, p.TotalPages)
	}

	v.SetQuery("")
	if p := v.Snapshot(); p.Total != 45 {
		t.Errorf("expected empty query to match all, got %d", p.Total)
	}
}

func TestView_FoldsEachNameOnce(t *testing.T) {
	v := New(newFakeRepo(45), nil, 20)
	v.SetQuery("VILLAGE 4")

	// 45 names plus the empty display name
	if n := len(v.folds); n != 46 {
		t.Fatalf("expected 46 folded strings, got %d", n)
	}
	for i := 0; i < 3; i++ {
		if p := v.Snapshot(); p.Total != 6 {
			t.Fatalf("expected 6 matches, got %d", p.Total)
		}
		v.Next()
		v.Prev()
	}
	if n := len(v.folds); n != 46 {
		t.Errorf("expected memo to stay at 46, got %d", n)
	}
}

func TestView_RefreshClampsPage(t *testing.T) {
	repo := newFakeRepo(45)
	rec := &recorder{}
	v := New(repo, rec.trigger, 20)
	v.GoTo(3)

	repo.mu.Lock()
	repo.items = repo.items[:10]
	repo.mu.Unlock()

	v.Refresh()
	if p := v.Snapshot(); p.Page != 1 {
		t.Errorf("expected page 1 after shrink, got %d", p.Page)
	}
	if len(rec.last()) != 10 {
		t.Errorf("expected trigger for 10 ids, got %d", len(rec.last()))
	}
}

func TestView_Snapshot(t *testing.T) {
	v := New(newFakeRepo(45), nil, 0)

	p := v.Snapshot()
	if p.PerPage != DefaultPerPage || p.Total != 45 || p.TotalPages != 3 || len(p.Items) != 20 {
		t.Errorf("unexpected snapshot: %+v", p)
	}
}
