package pgdb

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/student"
)

const upsertStudentQuery = `
INSERT INTO admissions (student_id, class, section, roll_no, data)
VALUES (:student_id, :class, :section, :roll_no, :data)
ON CONFLICT (student_id) DO UPDATE
SET class = EXCLUDED.class, section = EXCLUDED.section, roll_no = EXCLUDED.roll_no, data = EXCLUDED.data`

type studentRow struct {
	StudentID string `db:"student_id"`
	Class     string `db:"class"`
	Section   string `db:"section"`
	RollNo    int    `db:"roll_no"`
	Data      []byte `db:"data"`
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo studentRepository) toRow(st student.Student) (studentRow, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return studentRow{}, errors.Wrap(err, "encoding student")
	}
	return studentRow{
		StudentID: st.StudentID,
		Class:     st.Class,
		Section:   st.Section,
		RollNo:    st.RollNo,
		Data:      data,
	}, nil
}

func (repo studentRepository) fromRows(rows []studentRow) ([]student.Student, error) {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		var st student.Student
		if err := json.Unmarshal(r.Data, &st); err != nil {
			return nil, errors.Wrap(err, "decoding student")
		}
		students = append(students, st)
	}
	return students, nil
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return core.NewStorageError(err, msg)
}

func (repo studentRepository) upsert(ctx context.Context, exec sqlx.ExtContext, st student.Student) error {
	row, err := repo.toRow(st)
	if err != nil {
		return err
	}
	if _, err = sqlx.NamedExecContext(ctx, exec, upsertStudentQuery, row); err != nil {
		return core.NewStorageError(err, "saving student")
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if err := repo.upsert(ctx, repo.db, st); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if err := repo.upsert(ctx, repo.db, st); err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return st, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM admissions WHERE student_id = $1`, studentID); err != nil {
		return core.NewStorageError(err, "deleting student")
	}
	return nil
}

func (repo studentRepository) GetStudent(ctx context.Context, studentID string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM admissions WHERE student_id = $1`, studentID); err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student")
	}
	students, err := repo.fromRows([]studentRow{row})
	if err != nil {
		return student.Student{}, err
	}
	return students[0], nil
}

func (repo studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM admissions`); err != nil {
		return nil, core.NewStorageError(err, "querying students")
	}
	return repo.fromRows(rows)
}

func (repo studentRepository) QueryStudentsByClassSection(ctx context.Context, class, section string) ([]student.Student, error) {
	var rows []studentRow
	q := `SELECT * FROM admissions WHERE class = $1 AND section = $2`
	if err := repo.db.SelectContext(ctx, &rows, q, class, section); err != nil {
		return nil, core.NewStorageError(err, "querying class section")
	}
	return repo.fromRows(rows)
}

func (repo studentRepository) ReplaceAllStudents(ctx context.Context, students []student.Student) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStorageError(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM admissions`); err != nil {
		return core.NewStorageError(err, "clearing admissions")
	}
	for _, st := range students {
		if err = repo.upsert(ctx, tx, st); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return core.NewStorageError(err, "committing admissions")
	}
	return nil
}
