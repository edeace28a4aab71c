package types

// UploadResponse answers POST /upload.
type UploadResponse struct {
	Success       bool   `json:"success"`
	VideoURL      string `json:"videoUrl"`
	Filename      string `json:"filename"`
	OriginalName  string `json:"originalName,omitempty"`
	Size          int64  `json:"size"`
	XMLFile       string `json:"xmlFile"`
	PrazoValidade string `json:"prazoValidade,omitempty"`
}

// UpdateValidityRequest is the body of POST /update-validity.
type UpdateValidityRequest struct {
	Filename       string `json:"filename"       rule:"required"`
	ExpirationDays int    `json:"expirationDays"`
}

// UpdateValidityResponse answers POST /update-validity.
type UpdateValidityResponse struct {
	Success       bool   `json:"success"`
	Filename      string `json:"filename"`
	XMLFile       string `json:"xmlFile"`
	PrazoValidade string `json:"prazoValidade"`
	XMLURL        string `json:"xmlUrl"`
}
