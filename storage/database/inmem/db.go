package inmemdb

import (
	"sync"

	"github.com/trezcool/maktab/core/catalog"
)

type (
	// DB holds the catalog tables in memory. All tables share one lock so cascading deletes stay consistent.
	DB struct {
		mutex    sync.RWMutex
		grades   *gradeTable
		subjects *subjectTable
		topics   *topicTable
	}

	// tables keep insertion order so listings are stable, like an ordered SELECT.
	gradeTable struct {
		rows  map[string]*catalog.Grade
		order []string
	}

	subjectTable struct {
		rows  map[string]*catalog.Subject
		order []string
	}

	topicTable struct {
		rows  map[string]*catalog.Topic
		order []string
	}
)

func Open() *DB {
	return &DB{
		grades:   &gradeTable{rows: make(map[string]*catalog.Grade)},
		subjects: &subjectTable{rows: make(map[string]*catalog.Subject)},
		topics:   &topicTable{rows: make(map[string]*catalog.Topic)},
	}
}

func removeKey(order []string, key string) []string {
	for i, k := range order {
		if k == key {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
