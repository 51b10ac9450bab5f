package relay

// RequestDTO is the JSON body accepted by every relay endpoint. Only text
// is required.
type RequestDTO struct {
	Text     string `json:"text"`
	Type     string `json:"type,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Language string `json:"language,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// ResponseDTO is returned by the /api endpoints and /enhance.
type ResponseDTO struct {
	Result   string `json:"result"`
	Fallback bool   `json:"fallback"`
	Mode     string `json:"mode"`
}

// PolishResponseDTO is the legacy keyboard response of POST /polish.
type PolishResponseDTO struct {
	PolishedText string `json:"polishedText"`
}
