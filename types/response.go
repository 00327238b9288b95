package types

// ApiResponse is the JSON envelope used by the dashboard API for errors
// and token issuance. Successful data endpoints return their payload raw.
type ApiResponse struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
