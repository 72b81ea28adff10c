package httpapi

// ErrorResponse represents an error response outside the dashboard envelope
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status      string           `json:"status"`
	Version     string           `json:"version"`
	Uptime      string           `json:"uptime"`
	Requests    int64            `json:"requests"`
	Fallbacks   int64            `json:"fallbacks"`
	Sources     map[string]int64 `json:"sources,omitempty"`
	AvgDuration string           `json:"avg_duration"`
}
