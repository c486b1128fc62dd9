// Package inmemdb is a record store kept in memory, for tests and demos.
package inmemdb

import (
	"sync"

	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
)

type (
	DB struct {
		user    *userTable
		student *studentTable
		feed    *student.Feed
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	studentTable struct {
		table      map[string]*student.Student
		order      []string          // ids, in insertion order
		emails     map[string]string // email -> id
		notes      map[string][]student.Note
		attendance map[string]map[string]student.Attendance // student id -> date -> record
		mutex      sync.RWMutex
	}
)

// Open returns an empty DB publishing its changes to feed.
func Open(feed *student.Feed) *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		student: &studentTable{
			table:      make(map[string]*student.Student),
			emails:     make(map[string]string),
			notes:      make(map[string][]student.Note),
			attendance: make(map[string]map[string]student.Attendance),
		},
		feed: feed,
	}
}
