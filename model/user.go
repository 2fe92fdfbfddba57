// model/user.go
package model

import "time"

// User is the profile record, one per identity. Identity itself comes
// from the external auth provider; this row only carries the learning
// personalization and profile fields.
type User struct {
	UID        string    `json:"uid" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"not null"`
	Name       string    `json:"name" gorm:"not null"`
	Analogy    string    `json:"analogy"`                      // free-text interests for personalized lessons
	AdaptLevel int       `json:"adaptLevel" gorm:"default:5"` // 1-10 slider value
	School     string    `json:"school,omitempty"`
	Country    string    `json:"country,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
