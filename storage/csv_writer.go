package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"restaurant-scraper/models"
)

var csvHeader = []string{
	"id", "name", "category", "address", "phone", "description",
	"business_hours", "image_url", "map_url", "reviews", "blog_reviews",
	"rating", "tags", "created_at", "updated_at",
}

// WriteCSV streams restaurant records as CSV, used by the admin export
// endpoint. Tags are joined with "|" so they survive a single cell.
func WriteCSV(w io.Writer, records []*models.Restaurant) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ID,
			r.Name,
			r.Category,
			r.Address,
			r.Phone,
			r.Description,
			r.BusinessHours,
			r.ImageURL,
			r.MapURL,
			strconv.Itoa(r.Reviews),
			strconv.Itoa(r.BlogReviews),
			strconv.FormatFloat(r.Rating, 'f', -1, 64),
			strings.Join(r.Tags, "|"),
			r.CreatedAt,
			r.UpdatedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
