package models

import "time"

type SocialAccount struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Platform        string     `db:"platform" json:"platform"`
	AccountID       string     `db:"account_id" json:"account_id"`
	AccountName     string     `db:"account_name" json:"account_name"`
	AccountUsername string     `db:"account_username" json:"account_username"`
	ProfilePicture  string     `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string     `db:"access_token" json:"-"`
	RefreshToken    string     `db:"refresh_token" json:"-"`
	OAuth1Token     string     `db:"oauth1_token" json:"-"`
	OAuth1Secret    string     `db:"oauth1_secret" json:"-"`
	TokenExpiresAt  *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformTiktok    = "tiktok"
	PlatformLinkedin  = "linkedin"
	PlatformYoutube   = "youtube"
)

// TokenExpired reports whether the stored access token has an expiry in
// the past. Accounts without an expiry never expire here.
func (sa *SocialAccount) TokenExpired(now time.Time) bool {
	return sa.TokenExpiresAt != nil && sa.TokenExpiresAt.Before(now)
}
