package derpi

// schema: https://derpibooru.org/pages/api
type Image struct {
	ID        int64    `json:"id"`
	Tags      []string `json:"tags"`
	TagIDs    []int64  `json:"tag_ids,omitempty"`
	Format    string   `json:"format,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
	ViewURL   string   `json:"view_url,omitempty"`
	Score     int64    `json:"score,omitempty"`
	Hidden    bool     `json:"hidden_from_users,omitempty"`
	Duplicate *int64   `json:"duplicate_of,omitempty"`
}

// GET /api/v1/json/images/:id
type ImageResp struct {
	Image Image `json:"image"`
}

// POST /api/v1/json/search/reverse
type SearchResp struct {
	Images []Image `json:"images"`
	Total  int64   `json:"total"`
}
