package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"restaurant-scraper/models"
	"restaurant-scraper/storage"
	"restaurant-scraper/utils"
)

// ListingScraper produces raw extracted fields for one listing URL.
// The sandbox it drives must be gone by the time Scrape returns.
type ListingScraper interface {
	Scrape(ctx context.Context, url string) (*models.RawExtraction, error)
}

// Cache is the optional read cache sitting in front of the store.
type Cache interface {
	Get(ctx context.Context, id string) (*models.Restaurant, bool)
	Set(ctx context.Context, id string, rec *models.Restaurant)
	Invalidate(ctx context.Context, id string)
}

// ScrapeResult is what a scrape invocation hands back to the admin UI.
// Exactly one of Data/Error is meaningful, keyed by Success.
type ScrapeResult struct {
	Success bool               `json:"success"`
	ID      string             `json:"id,omitempty"`
	Data    *models.Restaurant `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// UpdateResult reports a manual edit.
type UpdateResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetResult reports a read-one.
type GetResult struct {
	Success bool               `json:"success"`
	Data    *models.Restaurant `json:"data,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// RestaurantService coordinates scrape → normalize → upsert and the
// manual edit/read paths. No stage error escapes its methods; every
// failure is folded into the result shape.
type RestaurantService struct {
	store   storage.DocumentStore
	cache   Cache
	scraper ListingScraper
	norm    *Normalizer
	logger  *utils.Logger

	maxConcurrency int
	rateLimitMs    int

	now func() time.Time
}

// NewRestaurantService wires the service. cache may be nil, in which
// case reads always hit the store.
func NewRestaurantService(store storage.DocumentStore, cache Cache, scraper ListingScraper,
	logger *utils.Logger, maxConcurrency, rateLimitMs int) *RestaurantService {
	return &RestaurantService{
		store:          store,
		cache:          cache,
		scraper:        scraper,
		norm:           NewNormalizer(logger),
		logger:         logger,
		maxConcurrency: maxConcurrency,
		rateLimitMs:    rateLimitMs,
		now:            time.Now,
	}
}

// ScrapeAndSave scrapes url and persists the result. An empty id means
// creation: the store allocates an id, rating/tags get their creation
// defaults, and createdAt is stamped. A non-empty id means re-scrape:
// scraped fields are merge-written under the existing id, updatedAt is
// stamped, and rating/tags are left exactly as stored.
func (s *RestaurantService) ScrapeAndSave(ctx context.Context, url, id string) ScrapeResult {
	raw, err := s.scraper.Scrape(ctx, url)
	if err != nil {
		s.logger.Error("[restaurants] Scrape failed for %s: %v", url, err)
		return ScrapeResult{Error: err.Error()}
	}

	rec := s.norm.Normalize(raw, url)
	now := s.now()
	fields := scrapedFields(rec)

	if id == "" {
		fields["rating"] = 0.0
		fields["tags"] = []string{}
		fields["createdAt"] = now

		newID, err := s.store.Add(ctx, fields)
		if err != nil {
			s.logger.Error("[restaurants] Create failed for %s: %v", url, err)
			return ScrapeResult{Error: err.Error()}
		}

		rec.ID = newID
		rec.Tags = []string{}
		rec.CreatedAt = now.UTC().Format(time.RFC3339)
		s.logger.Info("[restaurants] Created %s (%q)", newID, rec.Name)
		return ScrapeResult{Success: true, ID: newID, Data: rec}
	}

	fields["updatedAt"] = now
	if err := s.store.SetMerge(ctx, id, fields); err != nil {
		s.logger.Error("[restaurants] Re-scrape write failed for %s: %v", id, err)
		return ScrapeResult{Error: err.Error()}
	}
	s.invalidate(ctx, id)

	rec.ID = id
	rec.UpdatedAt = now.UTC().Format(time.RFC3339)
	s.logger.Info("[restaurants] Re-scraped %s (%q)", id, rec.Name)
	return ScrapeResult{Success: true, ID: id, Data: rec}
}

// Update applies a manual partial edit. Keys with nil values are dropped
// rather than written as nulls; createdAt is never touched here.
func (s *RestaurantService) Update(ctx context.Context, id string, partial map[string]any) UpdateResult {
	fields := make(map[string]any, len(partial)+1)
	for k, v := range partial {
		if v == nil {
			continue
		}
		fields[k] = v
	}
	fields["updatedAt"] = s.now()

	if err := s.store.UpdateFields(ctx, id, fields); err != nil {
		s.logger.Error("[restaurants] Update failed for %s: %v", id, err)
		return UpdateResult{Error: err.Error()}
	}
	s.invalidate(ctx, id)
	return UpdateResult{Success: true}
}

// Get fetches one record, preferring the cache when present.
func (s *RestaurantService) Get(ctx context.Context, id string) GetResult {
	if s.cache != nil {
		if rec, ok := s.cache.Get(ctx, id); ok {
			return GetResult{Success: true, Data: rec}
		}
	}

	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return GetResult{Error: "restaurant not found"}
	}
	if err != nil {
		s.logger.Error("[restaurants] Get failed for %s: %v", id, err)
		return GetResult{Error: err.Error()}
	}

	if s.cache != nil {
		s.cache.Set(ctx, id, rec)
	}
	return GetResult{Success: true, Data: rec}
}

// BulkRescrape re-scrapes the given records concurrently, one sandbox per
// listing, bounded by the configured concurrency. Records sharing a map
// URL are scraped once; the duplicates fail with an explanatory error.
func (s *RestaurantService) BulkRescrape(ctx context.Context, ids []string) []ScrapeResult {
	results := make([]ScrapeResult, len(ids))
	pool := utils.NewWorkerPool(s.maxConcurrency, s.rateLimitMs)
	seen := utils.NewURLSet()

	for i, id := range ids {
		i, id := i, id
		pool.Submit(func() {
			got := s.Get(ctx, id)
			if !got.Success {
				results[i] = ScrapeResult{ID: id, Error: got.Error}
				return
			}
			if got.Data.MapURL == "" {
				results[i] = ScrapeResult{ID: id, Error: "record has no map url to re-scrape"}
				return
			}
			if !seen.Add(got.Data.MapURL) {
				results[i] = ScrapeResult{ID: id, Error: "duplicate map url in batch"}
				return
			}
			results[i] = s.ScrapeAndSave(ctx, got.Data.MapURL, id)
		})
	}
	pool.Wait()

	return results
}

// ExportCSV streams the whole collection as CSV.
func (s *RestaurantService) ExportCSV(ctx context.Context, w io.Writer) error {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return storage.WriteCSV(w, records)
}

func (s *RestaurantService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

// scrapedFields lists exactly the fields a scrape may write. Rating and
// tags are deliberately absent: a re-scrape must not touch them.
func scrapedFields(r *models.Restaurant) map[string]any {
	return map[string]any{
		"name":          r.Name,
		"category":      r.Category,
		"address":       r.Address,
		"phone":         r.Phone,
		"description":   r.Description,
		"businessHours": r.BusinessHours,
		"imageUrl":      r.ImageURL,
		"mapUrl":        r.MapURL,
		"reviews":       r.Reviews,
		"blogReviews":   r.BlogReviews,
	}
}
