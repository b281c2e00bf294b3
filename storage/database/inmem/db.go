package inmemdb

import (
	"sync"

	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

// DB is a thread-safe in-memory store. It emulates the uniqueness
// constraints of the SQL schema so service behavior matches production:
// one active session per (activity, date), one attendance record per
// (student, activity, date).
type (
	DB struct {
		user    *userTable
		session *sessionTable
		record  *recordTable
		badge   *badgeTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*checkin.Session
		// activeKeys holds "activityID|date" for active sessions
		activeKeys map[string]string // key -> session ID
	}

	recordTable struct {
		sync.RWMutex
		table map[string]*checkin.Record
		// keys holds "studentID|activityID|date"
		keys map[string]string // key -> record ID
	}

	badgeTable struct {
		sync.RWMutex
		table map[string]*badge.Badge // keyed by person ID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		session: &sessionTable{
			table:      make(map[string]*checkin.Session),
			activeKeys: make(map[string]string),
		},
		record: &recordTable{
			table: make(map[string]*checkin.Record),
			keys:  make(map[string]string),
		},
		badge: &badgeTable{table: make(map[string]*badge.Badge)},
	}
	return db, nil
}
