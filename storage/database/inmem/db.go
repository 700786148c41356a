// Package inmemdb is a volatile store, used by tests and the `memory` engine.
package inmemdb

import (
	"sync"

	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/student"
)

type (
	DB struct {
		admissions *admissionsTable
		history    *historyTable
		settings   *settingsTable
	}

	classSection struct {
		class, section string
	}

	admissionsTable struct {
		sync.RWMutex
		table map[string]*student.Student
		index map[classSection]map[string]struct{} // (class, section) -> studentIDs
	}

	historyTable struct {
		sync.RWMutex
		table   map[int]*history.Entry
		pkCount int
	}

	settingsTable struct {
		sync.RWMutex
		table map[string][]byte
	}
)

func Open() (*DB, error) {
	db := &DB{
		admissions: &admissionsTable{
			table: make(map[string]*student.Student),
			index: make(map[classSection]map[string]struct{}),
		},
		history:  &historyTable{table: make(map[int]*history.Entry)},
		settings: &settingsTable{table: make(map[string][]byte)},
	}
	return db, nil
}

func (db *DB) Close() error { return nil }
