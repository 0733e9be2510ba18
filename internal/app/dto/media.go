package dto

// UploadResult lists public URLs in upload order.
type UploadResult struct {
	URLs []string `json:"urls"`
}

// SavedStatus answers GET /saved/{id}.
type SavedStatus struct {
	Saved bool `json:"saved"`
}
