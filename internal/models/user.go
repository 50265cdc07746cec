package models

import (
	"strings"
	"time"
)

// User represents a verified fleet operator account.
type User struct {
	BaseModel
	FullName     string `json:"full_name"`
	Phone        string `gorm:"uniqueIndex" json:"phone"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Company      string `json:"company"`
}

// Profile is the signup form submitted before the phone is verified.
type Profile struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Company  string `json:"company"`
}

// Normalize trims surrounding whitespace and lower-cases the email.
func (p Profile) Normalize() Profile {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Address = strings.TrimSpace(p.Address)
	p.City = strings.TrimSpace(p.City)
	p.State = strings.TrimSpace(p.State)
	p.Zip = strings.TrimSpace(p.Zip)
	p.Company = strings.TrimSpace(p.Company)
	return p
}

// MissingFields lists the required fields left blank, in form order.
func (p Profile) MissingFields() []string {
	required := []struct {
		name  string
		value string
	}{
		{"full_name", p.FullName},
		{"phone", p.Phone},
		{"email", p.Email},
		{"password", p.Password},
		{"address", p.Address},
		{"city", p.City},
		{"state", p.State},
		{"zip", p.Zip},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// PendingSignup keeps a signup profile until its one-time code is confirmed.
type PendingSignup struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	Profile   Profile   `json:"profile"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether now is past the code's validity window.
func (p PendingSignup) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
