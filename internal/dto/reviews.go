package dto

// ResolveReviewRequest records a reviewer decision.
type ResolveReviewRequest struct {
	Approve *bool  `json:"approve"`
	Notes   string `json:"notes"`
}
