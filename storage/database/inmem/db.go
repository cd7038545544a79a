// Package inmemdb is a process local storage, used in tests & the `memory` storage driver.
package inmemdb

import (
	"sync"

	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
)

// DB holds every table behind one lock: an edge mutation updates both of its ends.
type DB struct {
	mutex sync.RWMutex

	students map[string]*roster.Student
	teachers map[string]*roster.Teacher
	classes  map[string]*roster.Class
	payments map[string]*payment.Record

	studentOrder []string
	teacherOrder []string
	classOrder   []string
}

func Open() *DB {
	return &DB{
		students: make(map[string]*roster.Student),
		teachers: make(map[string]*roster.Teacher),
		classes:  make(map[string]*roster.Class),
		payments: make(map[string]*payment.Record),
	}
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if i != id {
			out = append(out, i)
		}
	}
	return out
}
