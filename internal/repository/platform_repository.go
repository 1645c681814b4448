package repository

import (
	"context"
	"database/sql"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mehulsinha/postpilot/internal/models"
)

type PlatformConnectionRepository interface {
	Upsert(ctx context.Context, pc *models.PlatformConnection) error
	GetByUserAndPlatform(ctx context.Context, userID, platform string) (*models.PlatformConnection, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	ListConnectedByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	Disconnect(ctx context.Context, userID, platform string) error
}

type platformConnectionRepository struct {
	db *sql.DB
}

func NewPlatformConnectionRepository(db *sql.DB) PlatformConnectionRepository {
	return &platformConnectionRepository{db: db}
}

const connectionColumns = `id, user_id, platform, connected, access_token, refresh_token, token_expires_at, profile_id, profile_name, username, avatar_url, created_at, updated_at`

func scanConnection(row interface{ Scan(...interface{}) error }) (*models.PlatformConnection, error) {
	var pc models.PlatformConnection
	err := row.Scan(
		&pc.ID,
		&pc.UserID,
		&pc.Platform,
		&pc.Connected,
		&pc.AccessToken,
		&pc.RefreshToken,
		&pc.TokenExpiresAt,
		&pc.ProfileID,
		&pc.ProfileName,
		&pc.Username,
		&pc.AvatarURL,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// Upsert creates the connection row on first connect and patches it on every
// reconnect. One row per (user, platform), enforced by a unique index.
func (r *platformConnectionRepository) Upsert(ctx context.Context, pc *models.PlatformConnection) error {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		INSERT INTO platform_connections (
			id, user_id, platform, connected, access_token, refresh_token,
			token_expires_at, profile_id, profile_name, username, avatar_url
		)
		VALUES ($1, $2, $3, true, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			connected = true,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			profile_id = EXCLUDED.profile_id,
			profile_name = EXCLUDED.profile_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now()
	`
	_, err = r.db.ExecContext(ctx, query,
		id,
		pc.UserID,
		pc.Platform,
		pc.AccessToken,
		pc.RefreshToken,
		pc.TokenExpiresAt,
		pc.ProfileID,
		pc.ProfileName,
		pc.Username,
		pc.AvatarURL,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformConnectionRepository) GetByUserAndPlatform(ctx context.Context, userID, platform string) (*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 AND platform = $2`
	pc, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pc, nil
}

func (r *platformConnectionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1`
	return r.list(ctx, query, userID)
}

func (r *platformConnectionRepository) ListConnectedByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 AND connected = true`
	return r.list(ctx, query, userID)
}

// Disconnect clears the credential columns but keeps the row, so the
// connection history survives a disconnect.
func (r *platformConnectionRepository) Disconnect(ctx context.Context, userID, platform string) error {
	query := `
		UPDATE platform_connections
		SET connected = false,
			access_token = '',
			refresh_token = '',
			token_expires_at = NULL,
			updated_at = now()
		WHERE user_id = $1 AND platform = $2
	`
	_, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformConnectionRepository) list(ctx context.Context, query, userID string) ([]*models.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.PlatformConnection
	for rows.Next() {
		pc, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, pc)
	}
	return connections, rows.Err()
}
