package entity

import (
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/domain"
)

// MongoSessionDoc represents a Shopify session in MongoDB. AccessToken holds ciphertext.
type MongoSessionDoc struct {
	ID            string     `bson:"_id"`
	Shop          string     `bson:"shop"`
	State         string     `bson:"state"`
	IsOnline      bool       `bson:"isOnline"`
	Scope         string     `bson:"scope,omitempty"`
	Expires       *time.Time `bson:"expires,omitempty"`
	AccessToken   string     `bson:"accessToken"`
	UserID        *int64     `bson:"userId,omitempty"`
	FirstName     string     `bson:"firstName,omitempty"`
	LastName      string     `bson:"lastName,omitempty"`
	Email         string     `bson:"email,omitempty"`
	AccountOwner  bool       `bson:"accountOwner"`
	Locale        string     `bson:"locale,omitempty"`
	Collaborator  bool       `bson:"collaborator"`
	EmailVerified bool       `bson:"emailVerified"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

// ToDomain converts the document; the caller supplies the decrypted token
func (d *MongoSessionDoc) ToDomain(accessToken string) *domain.Session {
	return &domain.Session{
		ID:            d.ID,
		Shop:          d.Shop,
		State:         d.State,
		IsOnline:      d.IsOnline,
		Scope:         d.Scope,
		Expires:       d.Expires,
		AccessToken:   accessToken,
		UserID:        d.UserID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Email:         d.Email,
		AccountOwner:  d.AccountOwner,
		Locale:        d.Locale,
		Collaborator:  d.Collaborator,
		EmailVerified: d.EmailVerified,
	}
}

// MongoSessionDocFromDomain converts a session, storing encryptedToken in place of the token
func MongoSessionDocFromDomain(s *domain.Session, encryptedToken string) *MongoSessionDoc {
	return &MongoSessionDoc{
		ID:            s.ID,
		Shop:          s.Shop,
		State:         s.State,
		IsOnline:      s.IsOnline,
		Scope:         s.Scope,
		Expires:       s.Expires,
		AccessToken:   encryptedToken,
		UserID:        s.UserID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Email:         s.Email,
		AccountOwner:  s.AccountOwner,
		Locale:        s.Locale,
		Collaborator:  s.Collaborator,
		EmailVerified: s.EmailVerified,
	}
}
