// Package types defines the HTTP request and response shapes shared by the
// store server, the console poller and the kiosk player. JSON field names
// keep the legacy wire format, prazoValidade included, so existing displays
// keep working.
package types

import "time"

// VideoInfo is one asset summary as reported by /list and /check. The
// ExpirationDays field is never set by the store; the console fills it in
// after decoding the sidecar.
type VideoInfo struct {
	Filename       string    `json:"filename"`
	URL            string    `json:"url"`
	DownloadURL    string    `json:"downloadUrl"`
	XMLFile        string    `json:"xmlFile,omitempty"`
	XMLURL         string    `json:"xmlUrl,omitempty"`
	Size           int64     `json:"size"`
	Created        time.Time `json:"created"`
	ExpirationDays *int      `json:"expirationDays,omitempty"`
}

// ListResponse answers /list and /check.
type ListResponse struct {
	Success bool        `json:"success"`
	Exists  bool        `json:"exists"`
	Videos  []VideoInfo `json:"videos"`
	Count   int         `json:"count"`
}

// DeleteResponse answers DELETE /delete/:filename.
type DeleteResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}
