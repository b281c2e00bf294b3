package inmemdb

import (
	"context"

	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
)

type badgeRepository struct {
	db *badgeTable
}

func NewBadgeRepository(db *DB) badge.Repository {
	return &badgeRepository{db: db.badge}
}

func (repo *badgeRepository) UpsertBadge(ctx context.Context, b badge.Badge) (badge.Badge, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[b.PersonID] = &b
	return b, nil
}

func (repo *badgeRepository) GetBadgeByPersonID(ctx context.Context, personID string) (badge.Badge, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.table[personID]; ok {
		return *b, nil
	}
	return badge.Badge{}, badge.ErrBadgeNotFound
}
