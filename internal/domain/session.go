package domain

import (
	"strings"
	"time"
)

const (
	// OfflineSessionState marks sessions created by the offline token exchange
	OfflineSessionState = "offline"
)

// Session is a stored Shopify access session for a shop
type Session struct {
	ID            string     `json:"id"`
	Shop          string     `json:"shop"`
	State         string     `json:"state"`
	IsOnline      bool       `json:"isOnline"`
	Scope         string     `json:"scope,omitempty"`
	Expires       *time.Time `json:"expires,omitempty"`
	AccessToken   string     `json:"-"`
	UserID        *int64     `json:"userId,omitempty"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	Email         string     `json:"email,omitempty"`
	AccountOwner  bool       `json:"accountOwner"`
	Locale        string     `json:"locale,omitempty"`
	Collaborator  bool       `json:"collaborator"`
	EmailVerified bool       `json:"emailVerified"`
}

// OfflineSessionID returns the identifier of the shop's offline session
func OfflineSessionID(shop string) string {
	return shop + "_offline"
}

// OnlineSessionID returns the identifier of a user's online session for the shop
func OnlineSessionID(shop, userID string) string {
	return shop + "_" + userID
}

// IsActive reports whether the session holds a token that has not expired at now
func (s *Session) IsActive(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.Expires == nil || now.Before(*s.Expires)
}

// Scopes splits the comma separated scope string
func (s *Session) Scopes() []string {
	if s.Scope == "" {
		return nil
	}
	parts := strings.Split(s.Scope, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
