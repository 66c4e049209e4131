package dto

// TokenTypeBearer is the only token type the API issues.
const TokenTypeBearer = "Bearer"

// LoginRequest payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse standard response for auth endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
