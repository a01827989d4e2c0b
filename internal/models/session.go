package models

// UserProfile is the cached identity of the logged-in operator.
type UserProfile struct {
	Email string `json:"email"`
}

// Session is the token pair issued by the backend, plus the cached
// profile. Exactly one live session exists per store; the pair is
// replaced atomically on refresh.
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	Profile      *UserProfile `json:"profile,omitempty"`
}
