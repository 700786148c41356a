package inmemdb

import (
	"context"

	"github.com/trezcool/schooldesk/core/student"
)

type studentRepository struct {
	db *admissionsTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.admissions}
}

// put must be called with the write lock held
func (repo *studentRepository) put(st student.Student) {
	if old, ok := repo.db.table[st.StudentID]; ok {
		repo.unindex(*old)
	}
	stored := st.Clone()
	repo.db.table[st.StudentID] = &stored

	key := classSection{st.Class, st.Section}
	ids, ok := repo.db.index[key]
	if !ok {
		ids = make(map[string]struct{})
		repo.db.index[key] = ids
	}
	ids[st.StudentID] = struct{}{}
}

func (repo *studentRepository) unindex(st student.Student) {
	key := classSection{st.Class, st.Section}
	if ids, ok := repo.db.index[key]; ok {
		delete(ids, st.StudentID)
		if len(ids) == 0 {
			delete(repo.db.index, key)
		}
	}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, st := range repo.db.table {
		students = append(students, st.Clone())
	}
	return students
}

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.put(st)
	return st.Clone(), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.put(st)
	return st.Clone(), nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if st, ok := repo.db.table[studentID]; ok {
		repo.unindex(*st)
		delete(repo.db.table, studentID)
	}
	return nil
}

func (repo *studentRepository) GetStudent(_ context.Context, studentID string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.table[studentID]; ok {
		return st.Clone(), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) QueryStudentsByClassSection(_ context.Context, class, section string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := repo.db.index[classSection{class, section}]
	students := make([]student.Student, 0, len(ids))
	for id := range ids {
		students = append(students, repo.db.table[id].Clone())
	}
	return students, nil
}

func (repo *studentRepository) ReplaceAllStudents(_ context.Context, students []student.Student) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = make(map[string]*student.Student, len(students))
	repo.db.index = make(map[classSection]map[string]struct{})
	for _, st := range students {
		repo.put(st)
	}
	return nil
}
