package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yigit/machzor/internal/db"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/dberrors"
	"github.com/yigit/machzor/internal/pkg/logger"
)

// TokenRepository handles refresh token database operations
type TokenRepository struct {
	db *db.PostgresDB
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(database *db.PostgresDB) *TokenRepository {
	return &TokenRepository{db: database}
}

// CreateToken stores a refresh token for the user.
func (r *TokenRepository) CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expiry_date, is_revoked)
		VALUES ($1, $2, $3, FALSE)`,
		token, userID, expiryDate)

	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_key") {
			logger.Warn().Int64("userID", userID).Msg("Attempted to store duplicate refresh token")
			return apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error executing create token query")
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

// GetTokenByValue resolves a refresh token to its user. Revoked and expired
// tokens come back as their respective sentinel errors.
func (r *TokenRepository) GetTokenByValue(ctx context.Context, token string) (int64, error) {
	var (
		userID     int64
		expiryDate time.Time
		isRevoked  bool
	)

	err := r.db.Pool.QueryRow(ctx, `
		SELECT user_id, expiry_date, is_revoked
		FROM refresh_tokens
		WHERE token = $1`,
		token).Scan(&userID, &expiryDate, &isRevoked)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrTokenNotFound
		}
		logger.Error().Err(err).Msg("Error scanning refresh token row")
		return 0, fmt.Errorf("error retrieving token: %w", err)
	}

	if isRevoked {
		return 0, apperrors.ErrTokenRevoked
	}
	if expiryDate.Before(time.Now()) {
		return 0, apperrors.ErrTokenExpired
	}
	return userID, nil
}

// RevokeToken marks a refresh token as revoked.
func (r *TokenRepository) RevokeToken(ctx context.Context, token string) error {
	cmdTag, err := r.db.Pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET is_revoked = TRUE
		WHERE token = $1`,
		token)

	if err != nil {
		logger.Error().Err(err).Msg("Error executing revoke token query")
		return fmt.Errorf("error revoking token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

// CleanupExpiredTokens deletes expired tokens and revoked tokens older than
// thirty days. The bootstrap runs it periodically so the table stays small.
func (r *TokenRepository) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expiry_date < NOW()
		   OR (is_revoked = TRUE AND created_at < NOW() - INTERVAL '30 days')`)

	if err != nil {
		logger.Error().Err(err).Msg("Error executing cleanup tokens query")
		return 0, fmt.Errorf("error cleaning up tokens: %w", err)
	}

	deleted := cmdTag.RowsAffected()
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Msg("Cleaned up stale refresh tokens")
	}
	return deleted, nil
}
