package dummydb

import (
	"sync"

	"github.com/rmarban/approvio/core/project"
	"github.com/rmarban/approvio/core/user"
)

type (
	DB struct {
		user        *userTable
		project     *projectTable
		stageRecord *stageRecordTable
		validation  *validationTable
		document    *documentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	projectTable struct {
		sync.RWMutex
		table map[string]*project.Project
		seqs  map[int]int
	}

	stageRecordTable struct {
		sync.RWMutex
		table map[string]*project.StageRecord
	}

	validationTable struct {
		sync.RWMutex
		provisioned bool
		table       map[string]*project.RequirementValidation // keyed by project/stage/requirement
	}

	documentTable struct {
		sync.RWMutex
		table map[string]*project.Document
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:        &userTable{table: make(map[string]*user.User)},
		project:     &projectTable{table: make(map[string]*project.Project), seqs: make(map[int]int)},
		stageRecord: &stageRecordTable{table: make(map[string]*project.StageRecord)},
		validation:  &validationTable{},
		document:    &documentTable{table: make(map[string]*project.Document)},
	}
	return db, nil
}
