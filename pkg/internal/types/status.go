package types

import "time"

// StatusResponse answers the GET /status liveness probe.
type StatusResponse struct {
	Success   bool      `json:"success"`
	Status    string    `json:"status"`
	Server    string    `json:"server"`
	Uptime    float64   `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexResponse answers GET / with a short endpoint directory.
type IndexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
	Port      int               `json:"port"`
	Note      string            `json:"note"`
}
