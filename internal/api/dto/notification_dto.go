package dto

// SendRequest payload for POST /api/notifications/send.
type SendRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// SendToUserRequest payload for POST /api/notifications/send-to-user.
type SendToUserRequest struct {
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}
