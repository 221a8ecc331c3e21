package app_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"help_directory/internal/domain"
	"help_directory/internal/textnorm"
)

// ---- fakes ----

type linkCall struct {
	FacilityID int64
	Dimension  domain.Dimension
	EntryID    int64
}

type fakeFacilities struct {
	mu        sync.Mutex
	rows      []domain.Facility
	links     map[int64]map[domain.Dimension][]int64
	added     []linkCall
	coords    map[int64]domain.Coords
	misses    []string
	lastForce *bool
}

func (f *fakeFacilities) InsertFacility(ctx context.Context, fc *domain.Facility) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *fc)
	return nil
}

func (f *fakeFacilities) UpdateFacility(ctx context.Context, fc domain.Facility) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == fc.ID {
			f.rows[i] = fc
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeFacilities) SetCoordinates(ctx context.Context, id int64, c domain.Coords) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coords == nil {
		f.coords = map[int64]domain.Coords{}
	}
	f.coords[id] = c
	return nil
}

func (f *fakeFacilities) ReplaceLinks(ctx context.Context, id int64, links map[domain.Dimension][]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.links == nil {
		f.links = map[int64]map[domain.Dimension][]int64{}
	}
	cp := make(map[domain.Dimension][]int64, len(links))
	for d, ids := range links {
		cp[d] = append([]int64(nil), ids...)
	}
	f.links[id] = cp
	return nil
}

func (f *fakeFacilities) SaveDetails(ctx context.Context, fc domain.Facility, links map[domain.Dimension][]int64) error {
	if err := f.UpdateFacility(ctx, fc); err != nil {
		return err
	}
	return f.ReplaceLinks(ctx, fc.ID, links)
}

func (f *fakeFacilities) AddLink(ctx context.Context, id int64, d domain.Dimension, entryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, linkCall{id, d, entryID})
	return nil
}

func (f *fakeFacilities) LogMiss(ctx context.Context, key string, status int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, key)
	return nil
}

func (f *fakeFacilities) GetFacilityBySource(ctx context.Context, src string) (domain.Facility, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceURL != nil && *r.SourceURL == src {
			return r, nil
		}
	}
	return domain.Facility{}, domain.ErrNotFound
}

func (f *fakeFacilities) SlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == slug && r.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFacilities) ListFacilities(ctx context.Context) ([]domain.Facility, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Facility(nil), f.rows...), nil
}

func (f *fakeFacilities) FacilitiesToGeocode(ctx context.Context, force bool) ([]domain.Facility, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastForce = &force
	var out []domain.Facility
	for _, r := range f.rows {
		if force || !r.HasCoords() {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeEntries struct {
	byDim  map[domain.Dimension][]domain.ClassificationEntry
	nextID int64
}

func (f *fakeEntries) UpsertEntry(ctx context.Context, d domain.Dimension, name, slug string) (bool, error) {
	if f.byDim == nil {
		f.byDim = map[domain.Dimension][]domain.ClassificationEntry{}
	}
	for i, e := range f.byDim[d] {
		if e.Slug == slug {
			f.byDim[d][i].Name = name
			return false, nil
		}
	}
	f.nextID++
	f.byDim[d] = append(f.byDim[d], domain.ClassificationEntry{ID: f.nextID, Dimension: d, Name: name, Slug: slug})
	return true, nil
}

func (f *fakeEntries) ListEntries(ctx context.Context, d domain.Dimension) ([]domain.ClassificationEntry, error) {
	out := append([]domain.ClassificationEntry(nil), f.byDim[d]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// seed adds entries and returns their ids by name.
func (f *fakeEntries) seed(d domain.Dimension, names ...string) map[string]int64 {
	ids := map[string]int64{}
	for _, n := range names {
		_, _ = f.UpsertEntry(context.Background(), d, n, textnorm.Slugify(n))
		for _, e := range f.byDim[d] {
			if e.Name == n {
				ids[n] = e.ID
			}
		}
	}
	return ids
}

// fakeCache stores JSON so reads decode into any destination type.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
