package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
)

type badgeRepository struct {
	db *sqlx.DB
}

var _ badge.Repository = (*badgeRepository)(nil) // interface compliance check

func NewBadgeRepository(db *sqlx.DB) *badgeRepository {
	return &badgeRepository{db: db}
}

type badgeRow struct {
	PersonID  string    `db:"person_id"`
	Token     string    `db:"token"`
	IssuedBy  string    `db:"issued_by"`
	IssuedAt  time.Time `db:"issued_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// UpsertBadge replaces the person's badge; no uniqueness error is possible,
// re-issuance is an administrative reset.
func (repo badgeRepository) UpsertBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	const query = `
		INSERT INTO badge (person_id, token, issued_by, issued_at, expires_at)
		VALUES (:person_id, :token, :issued_by, :issued_at, :expires_at)
		ON CONFLICT (person_id) DO UPDATE
		SET token = EXCLUDED.token,
			issued_by = EXCLUDED.issued_by,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at`
	row := badgeRow{
		PersonID:  b.PersonID,
		Token:     b.Token,
		IssuedBy:  b.IssuedBy,
		IssuedAt:  b.IssuedAt.UTC(),
		ExpiresAt: b.ExpiresAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return badge.Badge{}, errors.Wrap(err, "upserting badge")
	}
	return b, nil
}

func (repo badgeRepository) GetBadgeByPersonID(ctx context.Context, personID string) (badge.Badge, error) {
	var row badgeRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM badge WHERE person_id = $1`, personID); err != nil {
		if err == sql.ErrNoRows {
			return badge.Badge{}, badge.ErrBadgeNotFound
		}
		return badge.Badge{}, errors.Wrap(err, "getting badge")
	}
	return badge.Badge{
		PersonID:  row.PersonID,
		Token:     row.Token,
		IssuedBy:  row.IssuedBy,
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}
