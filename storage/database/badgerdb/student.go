package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/student"
)

var sep = []byte{0}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func admissionKey(studentID string) []byte {
	return makeKey(prefixAdmissions, []byte(studentID))
}

func classSectionPrefix(class, section string) []byte {
	return makeKey(prefixClassSection, []byte(class), sep, []byte(section), sep)
}

func classSectionKey(st student.Student) []byte {
	return makeKey(classSectionPrefix(st.Class, st.Section), []byte(st.StudentID))
}

func getStudent(txn *badger.Txn, studentID string) (student.Student, error) {
	item, err := txn.Get(admissionKey(studentID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	var st student.Student
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	return st, err
}

// put writes the record and its index key, dropping the index key of the previous version.
func put(txn *badger.Txn, st student.Student) error {
	old, err := getStudent(txn, st.StudentID)
	switch {
	case err == nil:
		if err = txn.Delete(classSectionKey(old)); err != nil {
			return err
		}
	case err != student.ErrNotFound:
		return err
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err = txn.Set(admissionKey(st.StudentID), data); err != nil {
		return err
	}
	return txn.Set(classSectionKey(st), []byte{})
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	if err := repo.db.update(func(txn *badger.Txn) error { return put(txn, st) }); err != nil {
		return student.Student{}, core.NewStorageError(err, "creating student")
	}
	return st, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	if err := repo.db.update(func(txn *badger.Txn) error { return put(txn, st) }); err != nil {
		return student.Student{}, core.NewStorageError(err, "updating student")
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, studentID string) error {
	err := repo.db.update(func(txn *badger.Txn) error {
		old, err := getStudent(txn, studentID)
		if err != nil {
			if err == student.ErrNotFound {
				return nil
			}
			return err
		}
		if err = txn.Delete(classSectionKey(old)); err != nil {
			return err
		}
		return txn.Delete(admissionKey(studentID))
	})
	if err != nil {
		return core.NewStorageError(err, "deleting student")
	}
	return nil
}

func (repo *studentRepository) GetStudent(_ context.Context, studentID string) (student.Student, error) {
	var st student.Student
	err := repo.db.bdb.View(func(txn *badger.Txn) error {
		var err error
		st, err = getStudent(txn, studentID)
		return err
	})
	if err != nil {
		if err == student.ErrNotFound {
			return student.Student{}, err
		}
		return student.Student{}, core.NewStorageError(err, "getting student")
	}
	return st, nil
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.bdb.View(func(txn *badger.Txn) error {
		return scan(txn, prefixAdmissions, func(_, val []byte) error {
			var st student.Student
			if err := json.Unmarshal(val, &st); err != nil {
				return err
			}
			students = append(students, st)
			return nil
		})
	})
	if err != nil {
		return nil, core.NewStorageError(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) QueryStudentsByClassSection(_ context.Context, class, section string) ([]student.Student, error) {
	students := make([]student.Student, 0)
	prefix := classSectionPrefix(class, section)
	err := repo.db.bdb.View(func(txn *badger.Txn) error {
		ids := make([]string, 0)
		err := scan(txn, prefix, func(key, _ []byte) error {
			ids = append(ids, string(bytes.TrimPrefix(key, prefix)))
			return nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			st, err := getStudent(txn, id)
			if err != nil {
				return err
			}
			students = append(students, st)
		}
		return nil
	})
	if err != nil {
		return nil, core.NewStorageError(err, "querying class section")
	}
	return students, nil
}

func (repo *studentRepository) ReplaceAllStudents(_ context.Context, students []student.Student) error {
	if err := repo.db.bdb.DropPrefix(prefixAdmissions, prefixClassSection); err != nil {
		return core.NewStorageError(err, "dropping admissions")
	}

	wb := repo.db.bdb.NewWriteBatch()
	defer wb.Cancel()
	for _, st := range students {
		data, err := json.Marshal(st)
		if err != nil {
			return core.NewStorageError(err, "encoding student")
		}
		if err = wb.Set(admissionKey(st.StudentID), data); err != nil {
			return core.NewStorageError(err, "restoring student")
		}
		if err = wb.Set(classSectionKey(st), []byte{}); err != nil {
			return core.NewStorageError(err, "restoring class section index")
		}
	}
	if err := wb.Flush(); err != nil {
		return core.NewStorageError(err, "restoring admissions")
	}
	return nil
}
