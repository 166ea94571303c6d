package domain

import "time"

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	RunID     string    `json:"run_id"`
	Processed int       `json:"total_processed"`
	Succeeded int       `json:"success_count"`
	Failed    int       `json:"failed_count"`
	StartedAt time.Time `json:"start_time"`
	EndedAt   time.Time `json:"end_time"`
	Duration  float64   `json:"duration_seconds"`
}

// Page is a generic paged view over query results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	CurrentPage   int   `json:"current_page"`
	PageSize      int   `json:"page_size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}
