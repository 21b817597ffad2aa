package http

// APIResponse is the envelope every handler writes.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field. Field is the json name.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_SYMBOL"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message,omitempty" example:"symbol must be a ticker symbol"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
