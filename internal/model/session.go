package model

import "strings"

// DefaultFallbackUser labels movements recorded without a known user.
const DefaultFallbackUser = "Anonymous"

// Session identifies who is acting. It is passed explicitly into the service.
type Session struct {
	UserName string `json:"user_name"`
}

func (s Session) IsAnonymous() bool {
	return strings.TrimSpace(s.UserName) == ""
}

// DisplayName returns the user's name, or fallback when the session is anonymous.
func (s Session) DisplayName(fallback string) string {
	if s.IsAnonymous() {
		if fallback == "" {
			return DefaultFallbackUser
		}
		return fallback
	}
	return strings.TrimSpace(s.UserName)
}
