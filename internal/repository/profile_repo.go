package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental/internal/db"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*db.Profile, error)
	Upsert(ctx context.Context, p *db.Profile) error
	SetAvatar(ctx context.Context, id, url string) error
	List(ctx context.Context) ([]db.Profile, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(conn *sql.DB) ProfileRepository {
	return &profileRepository{db: conn}
}

const profileColumns = `id, full_name, email, role, phone, address, city, avatar_url, kyc_verified, created_at, updated_at`

func scanProfile(row rowScanner) (db.Profile, error) {
	var p db.Profile
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.Phone, &p.Address, &p.City,
		&p.AvatarURL, &p.KYCVerified, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*db.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, p *db.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return upsertProfile(ctx, r.db, p)
}

// upsertProfile never changes role or created_at of an existing row.
func upsertProfile(ctx context.Context, ex execer, p *db.Profile) error {
	query := `
	INSERT INTO profiles (` + profileColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		full_name = EXCLUDED.full_name,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		avatar_url = EXCLUDED.avatar_url,
		kyc_verified = EXCLUDED.kyc_verified,
		updated_at = EXCLUDED.updated_at`
	_, err := ex.ExecContext(ctx, query,
		p.ID, p.FullName, p.Email, p.Role, p.Phone, p.Address, p.City, p.AvatarURL, p.KYCVerified,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting profile %s: %w", p.ID, err)
	}
	return nil
}

func (r *profileRepository) SetAvatar(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("error setting avatar: %w", err)
	}
	return requireAffected(res)
}

// List returns every profile ordered by full name.
func (r *profileRepository) List(ctx context.Context) ([]db.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY full_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]db.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting profiles: %w", err)
	}
	return n, nil
}
