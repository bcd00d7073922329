package server

import "github.com/gdprscanner/gdprscan/internal/model"

// SubmitScanRequest is the payload the browser extension posts after running
// a scan locally. Violations and suggestions arrive already computed.
type SubmitScanRequest struct {
	URL         string          `json:"url"`
	UserID      string          `json:"userId"`
	Score       int             `json:"score"`
	Violations  []model.Finding `json:"violations"`
	Suggestions []string        `json:"suggestions"`
}

// AnalyzeRequest asks the server to capture and scan a URL itself.
type AnalyzeRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

// ExportRequest selects a stored scan and an output format.
type ExportRequest struct {
	ScanID int64  `json:"scanId"`
	UserID string `json:"userId"`
	Format string `json:"format"`
}

// CheckoutRequest upgrades a user's tier.
type CheckoutRequest struct {
	UserID string `json:"userId"`
}

// CreateWebhookRequest registers a delivery/monitor hook.
type CreateWebhookRequest struct {
	URL    string `json:"url"`
	Events string `json:"events"`
}

// ErrorResponse is the uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
