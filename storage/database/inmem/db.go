package inmemdb

import (
	"sync"
	"time"

	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

type (
	// DB is a process local stand-in for the postgres schema. A single lock guards every table
	// since reads join across them.
	DB struct {
		mu  sync.RWMutex
		seq map[string]int64

		users       map[int64]*user.User
		categories  map[int64]*category.Category
		courses     map[int64]*course.Course
		sections    map[int64]*course.Section
		lectures    map[int64]*course.Lecture
		enrollments map[link]time.Time
		watchlist   map[link]time.Time
		reviews     map[int64]*course.Review
	}

	link struct {
		userID   int64
		courseID int64
	}
)

func Open() *DB {
	return &DB{
		seq:         make(map[string]int64),
		users:       make(map[int64]*user.User),
		categories:  make(map[int64]*category.Category),
		courses:     make(map[int64]*course.Course),
		sections:    make(map[int64]*course.Section),
		lectures:    make(map[int64]*course.Lecture),
		enrollments: make(map[link]time.Time),
		watchlist:   make(map[link]time.Time),
		reviews:     make(map[int64]*course.Review),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}
