package http

// APIResponse is the envelope every JSON endpoint writes. On errors Data
// holds a []*AppError.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}
