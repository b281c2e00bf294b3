package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
)

type recordRepository struct {
	db *recordTable
}

func NewRecordRepository(db *DB) checkin.RecordRepository {
	return &recordRepository{db: db.record}
}

func recordKey(studentID, activityID string, date time.Time) string {
	return studentID + "|" + activityID + "|" + date.UTC().Format("2006-01-02")
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec checkin.Record) (checkin.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := recordKey(rec.StudentID, rec.ActivityID, rec.Date)
	if _, ok := repo.db.keys[key]; ok {
		return checkin.Record{}, checkin.ErrAlreadyCheckedIn
	}
	repo.db.keys[key] = rec.ID
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *recordRepository) GetRecord(ctx context.Context, studentID, activityID string, date time.Time) (checkin.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	id, ok := repo.db.keys[recordKey(studentID, activityID, date)]
	if !ok {
		return checkin.Record{}, checkin.ErrRecordNotFound
	}
	return *repo.db.table[id], nil
}

func (repo *recordRepository) FilterRecords(ctx context.Context, filter checkin.RecordFilter) ([]checkin.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []checkin.Record
	for _, rec := range repo.db.table {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.ActivityID != "" && rec.ActivityID != filter.ActivityID {
			continue
		}
		if !filter.DateFrom.IsZero() && rec.Date.Before(filter.DateFrom.Time) {
			continue
		}
		if !filter.DateTo.IsZero() && rec.Date.After(filter.DateTo.Time) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].RecordedAt.After(recs[j].RecordedAt) })
	return recs, nil
}
