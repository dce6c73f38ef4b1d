package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpfolio/reconciler-backend/internal/models"
)

type FollowerUserRepo struct {
	pool *pgxpool.Pool
}

func NewFollowerUserRepo(pool *pgxpool.Pool) *FollowerUserRepo {
	return &FollowerUserRepo{pool: pool}
}

// ListEligible returns users whose credentials are set and whose
// encrypted private key is present.
func (r *FollowerUserRepo) ListEligible(ctx context.Context) ([]models.FollowerUser, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, api_key, COALESCE(fee_tier, ''), hl_private_key_encrypted, hl_wallet_address
		 FROM follower_users
		 WHERE credentials_set = true AND hl_private_key_encrypted IS NOT NULL
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.FollowerUser
	for rows.Next() {
		var u models.FollowerUser
		if err := rows.Scan(&u.ID, &u.Email, &u.APIKey, &u.FeeTier, &u.PrivateKeyEncrypted, &u.WalletAddress); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetByID returns one user, or nil when the id is unknown.
func (r *FollowerUserRepo) GetByID(ctx context.Context, id int64) (*models.FollowerUser, error) {
	var u models.FollowerUser
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, api_key, COALESCE(fee_tier, ''), hl_private_key_encrypted, hl_wallet_address
		 FROM follower_users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.APIKey, &u.FeeTier, &u.PrivateKeyEncrypted, &u.WalletAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
