package dto

// RegisterTokenRequest payload for POST /api/tokens/register.
type RegisterTokenRequest struct {
	UserID      string `json:"userId"`
	DeviceToken string `json:"deviceToken"`
}

// TokenResponse describes one registration.
type TokenResponse struct {
	UserID      string `json:"userId"`
	DeviceToken string `json:"deviceToken"`
}

// UserTokensResponse lists a user's registered devices.
type UserTokensResponse struct {
	UserID string   `json:"userId"`
	Tokens []string `json:"tokens"`
	Count  int      `json:"count"`
}

// TokenOwnerResponse names the user a token is registered to.
type TokenOwnerResponse struct {
	DeviceToken string `json:"deviceToken"`
	UserID      string `json:"userId"`
}
