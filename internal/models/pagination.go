package models

// Pagination describes cursor/offset metadata on a list response.
type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}
