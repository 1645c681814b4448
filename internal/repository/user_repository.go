package repository

import (
	"context"
	"database/sql"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mehulsinha/postpilot/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error)
	SetPlatformConnected(ctx context.Context, userID, platform string, connected bool) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, google_id, email, display_name, photo_url, platforms, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.DisplayName,
		&u.PhotoURL,
		&u.Platforms,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	flags := models.PlatformFlags{
		models.PlatformLinkedin: {Connected: false},
		models.PlatformTwitter:  {Connected: false},
	}

	query := `
		INSERT INTO users (id, google_id, email, display_name, photo_url, platforms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		id,
		user.GoogleID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		flags,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, googleID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return user, true, nil
}

// SetPlatformConnected updates the denormalized connected flag kept on the
// user row. platform_connections is the source of truth; this flag is a
// read-side convenience and may briefly disagree with it.
func (r *userRepository) SetPlatformConnected(ctx context.Context, userID, platform string, connected bool) error {
	query := `
		UPDATE users
		SET platforms = jsonb_set(platforms, ARRAY[$1], jsonb_build_object('connected', $2::bool), true),
			updated_at = now()
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, platform, connected, userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
