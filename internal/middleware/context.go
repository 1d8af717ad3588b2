package middleware

import "github.com/labstack/echo/v4"

// Context keys used to store authentication metadata.
const (
	ContextKeyReviewerID    = "reviewer_id"
	ContextKeyReviewerEmail = "reviewer_email"
	ContextKeyReviewerRole  = "reviewer_role"
	ContextKeyRequestID     = "request_id"
)

// ReviewerFromContext returns the authenticated reviewer email, falling back
// to the subject when the token carried no email.
func ReviewerFromContext(c echo.Context) string {
	if email, ok := c.Get(ContextKeyReviewerEmail).(string); ok && email != "" {
		return email
	}
	id, _ := c.Get(ContextKeyReviewerID).(string)
	return id
}
