package models

import "time"

// User is a registered player or admin. The user's ID doubles as their wallet
// account ID.
type User struct {
	ID         string     `json:"id" example:"6f1c1d2e"`              // User ID, also the wallet account ID
	Email      string     `json:"email" example:"player@example.com"` // User email
	IGN        string     `json:"ign" example:"HeadHunter"`           // In-game name
	GameUID    string     `json:"game_uid" example:"1234567890"`      // Game account UID used for stat snapshots
	Phone      string     `json:"phone" example:"+8801712345678"`     // Phone number
	Role       string     `json:"role" example:"player"`              // player or admin
	ReferredBy *string    `json:"referred_by,omitempty"`              // Referral code applied at signup, set once
	LastLogin  *time.Time `json:"last_login,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
