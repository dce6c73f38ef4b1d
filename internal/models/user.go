package models

// FollowerUser is an account eligible for reconciliation, loaded from
// the follower_users table.
type FollowerUser struct {
	ID                  int64   `json:"id"`
	Email               string  `json:"email"`
	APIKey              *string `json:"apiKey,omitempty"`
	FeeTier             string  `json:"feeTier"`
	PrivateKeyEncrypted *string `json:"-"`
	WalletAddress       *string `json:"walletAddress,omitempty"`
}
