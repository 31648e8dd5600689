package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"restaurant-scraper/models"
	"restaurant-scraper/scraper/naverplace"
	"restaurant-scraper/storage"
)

// fakeStore is an in-memory DocumentStore tracking every write.
type fakeStore struct {
	mu         sync.Mutex
	docs       map[string]map[string]any
	nextID     int
	writes     int
	failWrites error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]map[string]any)}
}

func (f *fakeStore) Add(_ context.Context, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return "", f.failWrites
	}
	f.nextID++
	id := fmt.Sprintf("id%d", f.nextID)
	doc := make(map[string]any, len(fields))
	for k, v := range fields {
		doc[k] = v
	}
	f.docs[id] = doc
	f.writes++
	return id, nil
}

func (f *fakeStore) SetMerge(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return f.failWrites
	}
	doc, ok := f.docs[id]
	if !ok {
		doc = make(map[string]any)
		f.docs[id] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.writes++
	return nil
}

func (f *fakeStore) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return f.failWrites
	}
	doc, ok := f.docs[id]
	if !ok {
		return storage.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.writes++
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*models.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return f.toModel(id, doc), nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*models.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Restaurant
	for id, doc := range f.docs {
		out = append(out, f.toModel(id, doc))
	}
	return out, nil
}

func (f *fakeStore) Close(context.Context) error { return nil }

func (f *fakeStore) toModel(id string, doc map[string]any) *models.Restaurant {
	r := &models.Restaurant{ID: id, Tags: []string{}}
	str := func(k string) string {
		v, _ := doc[k].(string)
		return v
	}
	r.Name = str("name")
	r.Category = str("category")
	r.Address = str("address")
	r.Phone = str("phone")
	r.Description = str("description")
	r.BusinessHours = str("businessHours")
	r.ImageURL = str("imageUrl")
	r.MapURL = str("mapUrl")
	if v, ok := doc["reviews"].(int); ok {
		r.Reviews = v
	}
	if v, ok := doc["blogReviews"].(int); ok {
		r.BlogReviews = v
	}
	if v, ok := doc["rating"].(float64); ok {
		r.Rating = v
	}
	if v, ok := doc["tags"].([]string); ok {
		r.Tags = v
	}
	if v, ok := doc["createdAt"].(time.Time); ok {
		r.CreatedAt = v.UTC().Format(time.RFC3339)
	}
	if v, ok := doc["updatedAt"].(time.Time); ok {
		r.UpdatedAt = v.UTC().Format(time.RFC3339)
	}
	return r
}

// fakeScraper returns a canned extraction or error.
type fakeScraper struct {
	raw   *models.RawExtraction
	err   error
	calls int32
}

func (f *fakeScraper) Scrape(context.Context, string) (*models.RawExtraction, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.raw
	return &cp, nil
}

func koreanExtraction() *models.RawExtraction {
	return &models.RawExtraction{
		Name:               "맛있는 한식당",
		Category:           "한식",
		VisitorReviewsText: "리뷰 234개",
		BlogReviewsText:    "",
		Address:            "서울 마포구 어딘가 12",
		BusinessHoursText:  "영업 중\n22:00에 영업 종료",
	}
}

func newTestService(store storage.DocumentStore, sc ListingScraper) *RestaurantService {
	return NewRestaurantService(store, nil, sc, newTestLogger(), 2, 0)
}

const mapURL = "https://map.naver.com/p/entry/place/1079425515"

func TestScrapeAndSaveCreation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	res := svc.ScrapeAndSave(context.Background(), mapURL, "")
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.ID == "" {
		t.Fatal("creation must return a store-allocated id")
	}

	doc := store.docs[res.ID]
	if doc == nil {
		t.Fatalf("no document stored under %s", res.ID)
	}
	if doc["name"] != "맛있는 한식당" {
		t.Errorf("name: got %v", doc["name"])
	}
	if doc["reviews"] != 234 || doc["blogReviews"] != 0 {
		t.Errorf("review counts: got %v / %v", doc["reviews"], doc["blogReviews"])
	}
	if doc["rating"] != 0.0 {
		t.Errorf("creation must default rating to 0, got %v", doc["rating"])
	}
	if tags, ok := doc["tags"].([]string); !ok || len(tags) != 0 {
		t.Errorf("creation must default tags to empty slice, got %v", doc["tags"])
	}
	if _, ok := doc["createdAt"].(time.Time); !ok {
		t.Error("createdAt must be stamped on creation")
	}
	if _, ok := doc["updatedAt"]; ok {
		t.Error("updatedAt must be absent on creation")
	}
	if res.Data.CreatedAt == "" || res.Data.UpdatedAt != "" {
		t.Errorf("returned record timestamps wrong: %+v", res.Data)
	}
	if res.Data.MapURL != mapURL {
		t.Errorf("mapUrl not kept verbatim: %q", res.Data.MapURL)
	}
}

func TestScrapeAndSaveRescrapePreservesRatingAndTags(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.docs["abc"] = map[string]any{
		"name":      "맛있는 한식당",
		"mapUrl":    mapURL,
		"reviews":   9,
		"rating":    4.5,
		"tags":      []string{"점심", "혼밥"},
		"createdAt": created,
	}

	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	res := svc.ScrapeAndSave(context.Background(), mapURL, "abc")
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.ID != "abc" {
		t.Errorf("re-scrape must keep the id, got %q", res.ID)
	}

	doc := store.docs["abc"]
	if doc["rating"] != 4.5 {
		t.Errorf("rating must survive re-scrape, got %v", doc["rating"])
	}
	if tags := doc["tags"].([]string); len(tags) != 2 {
		t.Errorf("tags must survive re-scrape, got %v", tags)
	}
	if doc["reviews"] != 234 {
		t.Errorf("reviews must be overwritten, got %v", doc["reviews"])
	}
	if got := doc["createdAt"].(time.Time); !got.Equal(created) {
		t.Errorf("createdAt must be unchanged, got %v", got)
	}
	if _, ok := doc["updatedAt"].(time.Time); !ok {
		t.Error("updatedAt must be stamped on re-scrape")
	}
}

func TestRescrapeIdempotentOnUnchangedPage(t *testing.T) {
	store := newFakeStore()
	store.docs["abc"] = map[string]any{"mapUrl": mapURL, "rating": 4.5, "tags": []string{"x"}}
	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	first := svc.ScrapeAndSave(context.Background(), mapURL, "abc")
	second := svc.ScrapeAndSave(context.Background(), mapURL, "abc")
	if !first.Success || !second.Success {
		t.Fatal("both re-scrapes should succeed")
	}

	a, b := first.Data, second.Data
	if a.Name != b.Name || a.Reviews != b.Reviews || a.BlogReviews != b.BlogReviews ||
		a.Address != b.Address || a.BusinessHours != b.BusinessHours || a.ImageURL != b.ImageURL {
		t.Errorf("scraped fields should be identical across re-scrapes:\n%+v\n%+v", a, b)
	}
}

func TestScrapeFailureWritesNothing(t *testing.T) {
	store := newFakeStore()
	frameErr := fmt.Errorf("%w: #entryIframe not found within 10s — not a Naver map place page, check the URL",
		naverplace.ErrNavigationTimeout)
	svc := newTestService(store, &fakeScraper{err: frameErr})

	res := svc.ScrapeAndSave(context.Background(), mapURL, "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "entryIframe") {
		t.Errorf("error should name the missing selector, got %q", res.Error)
	}
	if store.writes != 0 {
		t.Errorf("no writes expected on scrape failure, got %d", store.writes)
	}
}

func TestEmptyListingWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeScraper{err: naverplace.ErrEmptyListing})

	res := svc.ScrapeAndSave(context.Background(), mapURL, "")
	if res.Success || store.writes != 0 {
		t.Errorf("empty listing must fail with zero writes, got success=%v writes=%d",
			res.Success, store.writes)
	}
}

func TestPersistenceFailureSurfacesAsResult(t *testing.T) {
	store := newFakeStore()
	store.failWrites = fmt.Errorf("mongo: insert: connection reset")
	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	res := svc.ScrapeAndSave(context.Background(), mapURL, "")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "connection reset") {
		t.Errorf("store error should be carried through, got %q", res.Error)
	}
}

func TestUpdateDropsNilFields(t *testing.T) {
	store := newFakeStore()
	store.docs["abc"] = map[string]any{"address": "old address", "phone": "02-123-4567"}
	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	res := svc.Update(context.Background(), "abc", map[string]any{
		"address": "new address",
		"phone":   nil,
	})
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	doc := store.docs["abc"]
	if doc["address"] != "new address" {
		t.Errorf("address: got %v", doc["address"])
	}
	if doc["phone"] != "02-123-4567" {
		t.Errorf("nil-valued key must be dropped, not written: got %v", doc["phone"])
	}
	if _, ok := doc["updatedAt"].(time.Time); !ok {
		t.Error("updatedAt must be stamped on manual edit")
	}
	if _, ok := doc["createdAt"]; ok {
		t.Error("manual edit must not introduce createdAt")
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeScraper{raw: koreanExtraction()})

	res := svc.Update(context.Background(), "nope", map[string]any{"address": "x"})
	if res.Success {
		t.Fatal("expected failure for missing record")
	}
}

func TestGetNotFoundIsStructured(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeScraper{raw: koreanExtraction()})

	res := svc.Get(context.Background(), "missing")
	if res.Success {
		t.Fatal("expected structured not-found failure")
	}
	if res.Error != "restaurant not found" {
		t.Errorf("error: got %q", res.Error)
	}
}

func TestGetRendersTimestampsAsStrings(t *testing.T) {
	store := newFakeStore()
	store.docs["abc"] = map[string]any{
		"name":      "국밥집",
		"createdAt": time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	svc := newTestService(store, &fakeScraper{raw: koreanExtraction()})

	res := svc.Get(context.Background(), "abc")
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Data.CreatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("createdAt: got %q", res.Data.CreatedAt)
	}
	if res.Data.UpdatedAt != "" {
		t.Errorf("updatedAt should be absent, got %q", res.Data.UpdatedAt)
	}
}

func TestBulkRescrapeDeduplicatesMapURL(t *testing.T) {
	store := newFakeStore()
	store.docs["a"] = map[string]any{"mapUrl": mapURL}
	store.docs["b"] = map[string]any{"mapUrl": mapURL}
	store.docs["c"] = map[string]any{"mapUrl": mapURL + "?other"}
	sc := &fakeScraper{raw: koreanExtraction()}
	svc := newTestService(store, sc)

	results := svc.BulkRescrape(context.Background(), []string{"a", "b", "c"})

	if got := atomic.LoadInt32(&sc.calls); got != 2 {
		t.Errorf("expected 2 scrapes after dedupe, got %d", got)
	}

	var ok, dup int
	for _, r := range results {
		if r.Success {
			ok++
		} else if strings.Contains(r.Error, "duplicate") {
			dup++
		}
	}
	if ok != 2 || dup != 1 {
		t.Errorf("expected 2 successes and 1 duplicate failure, got %d / %d", ok, dup)
	}
}
