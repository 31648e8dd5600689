package models

// RawExtraction holds the unvalidated field values pulled out of the
// listing page DOM. Every field is a plain string; a selector that
// matched nothing yields "". It exists only between extraction and
// normalization and is never persisted.
type RawExtraction struct {
	Name               string `json:"name"`
	Category           string `json:"category"`
	VisitorReviewsText string `json:"visitorReviews"`
	BlogReviewsText    string `json:"blogReviews"`
	Description        string `json:"description"`
	Address            string `json:"address"`
	BusinessHoursText  string `json:"businessHours"`
	Phone              string `json:"phone"`
	ImageURL           string `json:"imageUrl"`
}

// Restaurant is the durable record as seen outside the persistence
// boundary. CreatedAt/UpdatedAt are RFC3339 strings (empty = not set);
// the store's native timestamp type never crosses this boundary.
type Restaurant struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Address       string   `json:"address"`
	Phone         string   `json:"phone"`
	Description   string   `json:"description"`
	BusinessHours string   `json:"businessHours"`
	ImageURL      string   `json:"imageUrl"`
	MapURL        string   `json:"mapUrl"`
	Reviews       int      `json:"reviews"`
	BlogReviews   int      `json:"blogReviews"`
	Rating        float64  `json:"rating"`
	Tags          []string `json:"tags"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	UpdatedAt     string   `json:"updatedAt,omitempty"`
}
