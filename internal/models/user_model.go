package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PlatformFlag is the denormalized connected indicator kept on the user row.
// The platform_connections table is the source of truth; these flags are
// updated alongside it by the handler layer and may briefly lag behind.
type PlatformFlag struct {
	Connected bool `json:"connected"`
}

// PlatformFlags is stored as a jsonb column on users.
type PlatformFlags map[string]PlatformFlag

func (f PlatformFlags) Value() (driver.Value, error) {
	if f == nil {
		f = PlatformFlags{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *PlatformFlags) Scan(src interface{}) error {
	if src == nil {
		*f = PlatformFlags{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.New("cannot scan platform flags")
	}
	return json.Unmarshal(b, f)
}

type User struct {
	ID          string        `db:"id" json:"id"`
	GoogleID    string        `db:"google_id" json:"-"`
	Email       string        `db:"email" json:"email"`
	DisplayName string        `db:"display_name" json:"display_name"`
	PhotoURL    string        `db:"photo_url" json:"photo_url"`
	Platforms   PlatformFlags `db:"platforms" json:"platforms"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}
