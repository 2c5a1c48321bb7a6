package server

// commandResponse is the reply to one dialogue turn.
type commandResponse struct {
	ResponseText string `json:"response_text"`
	IsFinal      bool   `json:"is_final"`
}

// ttsRequest is the request body for speech synthesis.
type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// errorResponse is a standard error response.
type errorResponse struct {
	Error string `json:"error"`
}
