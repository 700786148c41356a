package student

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
)

// AdmissionSeqKey holds the last admission sequence handed out, in the settings collection.
const AdmissionSeqKey = "admissionSeq"

var (
	// errors
	ErrNotFound  = errors.New("student not found")
	ErrClassFull = errors.New("no roll number left in this class section")
	ErrExists    = errors.New("a student with this id already exists")
)

type (
	// Repository is the admissions collection, keyed by StudentID and indexed by (Class, Section).
	Repository interface {
		// CreateStudent inserts st, overwriting any record stored under the same StudentID.
		CreateStudent(ctx context.Context, st Student) (Student, error)
		// UpdateStudent overwrites the record stored under st.StudentID.
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		// DeleteStudent removes the record; deleting a missing record is not an error.
		DeleteStudent(ctx context.Context, studentID string) error
		GetStudent(ctx context.Context, studentID string) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		QueryStudentsByClassSection(ctx context.Context, class, section string) ([]Student, error)
		// ReplaceAllStudents swaps the whole collection, used when restoring a backup.
		ReplaceAllStudents(ctx context.Context, students []Student) error
	}

	// Recorder appends audit entries, see history.Service.
	Recorder interface {
		Record(ctx context.Context, action, studentID string, before, after interface{}) error
	}

	Service struct {
		repo       Repository
		history    Recorder
		meta       settings.Repository
		schoolName string
	}
)

// NewService returns the admissions service; meta keeps the admission counter.
func NewService(repo Repository, rec Recorder, meta settings.Repository, schoolName string) *Service {
	return &Service{repo: repo, history: rec, meta: meta, schoolName: schoolName}
}

// Create stores st as is (overwriting), with an empty fee history if none.
func (svc *Service) Create(ctx context.Context, st Student) (Student, error) {
	st = normalize(st)
	if err := checkRecord(st); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, st)
}

// Update overwrites the stored record. When prev is given, an `update` history entry is appended.
// The record write and the history write are not atomic.
func (svc *Service) Update(ctx context.Context, st Student, prev *Student) (Student, error) {
	st = normalize(st)
	if err := checkRecord(st); err != nil {
		return Student{}, err
	}
	st, err := svc.repo.UpdateStudent(ctx, st)
	if err != nil {
		return Student{}, err
	}
	if prev != nil {
		if err = svc.history.Record(ctx, history.ActionUpdate, st.StudentID, *prev, st); err != nil {
			return st, errors.Wrap(err, "recording update")
		}
	}
	return st, nil
}

// Delete removes the record immediately. When prev is given, a `delete` history entry is appended.
// Undoing a delete is done by passing the captured snapshot to Restore.
func (svc *Service) Delete(ctx context.Context, studentID string, prev *Student) error {
	if err := svc.repo.DeleteStudent(ctx, studentID); err != nil {
		return err
	}
	if prev != nil {
		if err := svc.history.Record(ctx, history.ActionDelete, studentID, *prev, nil); err != nil {
			return errors.Wrap(err, "recording delete")
		}
	}
	return nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) QueryByClassSection(ctx context.Context, class, section string) ([]Student, error) {
	return svc.repo.QueryStudentsByClassSection(ctx, core.CleanString(class), core.CleanString(section))
}

func (svc *Service) GetByID(ctx context.Context, studentID string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(studentID))
}

// NextRollNo returns the smallest free roll number of the class section, 0 when it is full.
// Two concurrent admissions to the same section may get the same number.
func (svc *Service) NextRollNo(ctx context.Context, class, section string) (int, error) {
	students, err := svc.QueryByClassSection(ctx, class, section)
	if err != nil {
		return 0, errors.Wrap(err, "querying class section")
	}
	return NextRollNo(students), nil
}

// NextSequence returns the sequence of the next admission: one past both the persisted
// counter and the highest sequence among the stored student ids. Sequences are never reused.
func (svc *Service) NextSequence(ctx context.Context) (int, error) {
	last, err := svc.lastSequence(ctx)
	if err != nil {
		return 0, err
	}
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	for _, st := range students {
		if seq := ParseSequence(st.StudentID); seq > last {
			last = seq
		}
	}
	return last + 1, nil
}

func (svc *Service) lastSequence(ctx context.Context) (int, error) {
	b, err := svc.meta.GetSetting(ctx, AdmissionSeqKey)
	if errors.Cause(err) == settings.ErrNotFound {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrap(err, "reading admission counter")
	}
	seq, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid admission counter %q", b)
	}
	return seq, nil
}

func (svc *Service) saveSequence(ctx context.Context, seq int) error {
	return errors.Wrap(svc.meta.PutSetting(ctx, AdmissionSeqKey, []byte(strconv.Itoa(seq))), "saving admission counter")
}

// Admit allocates a roll number and a student ID, stores the new record and appends an `admission_added` entry.
// The id year is the admission year.
func (svc *Service) Admit(ctx context.Context, ns NewStudent) (Student, error) {
	admissionDate := core.CleanString(ns.AdmissionDate)
	if admissionDate == "" {
		admissionDate = core.Now().Format(dateLayout)
	}
	admitted, err := time.Parse(dateLayout, admissionDate)
	if err != nil {
		return Student{}, core.NewValidationError(err, core.FieldError{Field: "admission_date", Error: "date must be formatted as YYYY-MM-DD"})
	}

	roll, err := svc.NextRollNo(ctx, ns.Class, ns.Section)
	if err != nil {
		return Student{}, err
	}
	if roll == 0 {
		return Student{}, core.NewValidationError(ErrClassFull, core.FieldError{Field: "section", Error: ErrClassFull.Error()})
	}
	seq, err := svc.NextSequence(ctx)
	if err != nil {
		return Student{}, err
	}

	// ids from other schools or years may still sit on the computed one
	id := FormatStudentID(svc.schoolName, admitted.Year(), roll, seq)
	for {
		_, err = svc.repo.GetStudent(ctx, id)
		if errors.Cause(err) == ErrNotFound {
			break
		} else if err != nil {
			return Student{}, errors.Wrap(err, "checking student id")
		}
		seq++
		id = FormatStudentID(svc.schoolName, admitted.Year(), roll, seq)
	}
	if err = svc.saveSequence(ctx, seq); err != nil {
		return Student{}, err
	}

	st, err := svc.Create(ctx, Student{
		StudentID:     id,
		RollNo:        roll,
		Class:         ns.Class,
		Section:       ns.Section,
		Name:          ns.Name,
		FatherName:    ns.FatherName,
		MotherName:    ns.MotherName,
		DateOfBirth:   ns.DateOfBirth,
		Gender:        ns.Gender,
		Address:       ns.Address,
		IdentityNo:    ns.IdentityNo,
		Phone:         ns.Phone,
		Email:         ns.Email,
		AdmissionDate: admissionDate,
		Extra:         ns.Extra,
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	if err = svc.history.Record(ctx, history.ActionAdmissionAdded, st.StudentID, nil, st); err != nil {
		return st, errors.Wrap(err, "recording admission")
	}
	return st, nil
}

// Edit applies us to the stored student, re-allocating the roll number when the class section changes.
func (svc *Service) Edit(ctx context.Context, studentID string, us UpdateStudent) (Student, error) {
	orig, err := svc.GetByID(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	st := us.apply(orig)
	if st.Class != orig.Class || st.Section != orig.Section {
		roll, err := svc.NextRollNo(ctx, st.Class, st.Section)
		if err != nil {
			return Student{}, err
		}
		if roll == 0 {
			return Student{}, core.NewValidationError(ErrClassFull, core.FieldError{Field: "section", Error: ErrClassFull.Error()})
		}
		st.RollNo = roll
	}
	return svc.Update(ctx, st, &orig)
}

// Remove deletes the student and returns the snapshot needed to undo it.
func (svc *Service) Remove(ctx context.Context, studentID string) (Student, error) {
	snapshot, err := svc.GetByID(ctx, studentID)
	if err != nil {
		return Student{}, err
	}
	if err = svc.Delete(ctx, snapshot.StudentID, &snapshot); err != nil {
		return Student{}, err
	}
	return snapshot, nil
}

// Restore re-inserts a previously captured snapshot (undo of a delete). It never overwrites a stored
// student. When the snapshot's roll number was reassigned meanwhile, the next free one is allocated
// and an `update` entry records the change.
func (svc *Service) Restore(ctx context.Context, snapshot Student) (Student, error) {
	_, err := svc.repo.GetStudent(ctx, snapshot.StudentID)
	if err == nil {
		return Student{}, core.NewValidationError(ErrExists, core.FieldError{Field: "student_id", Error: ErrExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Student{}, errors.Wrap(err, "checking student id")
	}

	roster, err := svc.QueryByClassSection(ctx, snapshot.Class, snapshot.Section)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying class section")
	}
	restored := snapshot
	if rollTaken(roster, snapshot.RollNo) {
		roll := NextRollNo(roster)
		if roll == 0 {
			return Student{}, core.NewValidationError(ErrClassFull, core.FieldError{Field: "section", Error: ErrClassFull.Error()})
		}
		restored.RollNo = roll
	}

	st, err := svc.Create(ctx, restored)
	if err != nil {
		return Student{}, err
	}
	if st.RollNo != snapshot.RollNo {
		if err = svc.history.Record(ctx, history.ActionUpdate, st.StudentID, snapshot, st); err != nil {
			return st, errors.Wrap(err, "recording roll change")
		}
	}
	return st, nil
}

func rollTaken(roster []Student, roll int) bool {
	for _, st := range roster {
		if st.RollNo == roll {
			return true
		}
	}
	return false
}

// Promote moves every student of fromClass to toClass, keeping sections and allocating new roll numbers.
// It stops at the first full section; students moved before that stay moved.
func (svc *Service) Promote(ctx context.Context, fromClass, toClass string) ([]Student, error) {
	all, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	candidates := make([]Student, 0)
	for _, st := range all {
		if st.Class == fromClass {
			candidates = append(candidates, st)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Section == candidates[j].Section {
			return candidates[i].RollNo < candidates[j].RollNo
		}
		return candidates[i].Section < candidates[j].Section
	})

	promoted := make([]Student, 0, len(candidates))
	for _, orig := range candidates {
		orig := orig
		roll, err := svc.NextRollNo(ctx, toClass, orig.Section)
		if err != nil {
			return promoted, err
		}
		if roll == 0 {
			return promoted, core.NewValidationError(ErrClassFull, core.FieldError{Field: "to_class", Error: ErrClassFull.Error()})
		}
		st := orig
		st.Class = toClass
		st.RollNo = roll
		st.FeeHistory = append([]PaymentEvent(nil), orig.FeeHistory...)
		st, err = svc.Update(ctx, st, &orig)
		if err != nil {
			return promoted, errors.Wrapf(err, "promoting %s", orig.StudentID)
		}
		promoted = append(promoted, st)
	}
	return promoted, nil
}

func normalize(st Student) Student {
	if st.FeeHistory == nil {
		st.FeeHistory = make([]PaymentEvent, 0)
	}
	return st
}

// checkRecord validates the invariants every stored record must hold.
func checkRecord(st Student) error {
	var flds []core.FieldError
	if core.CleanString(st.StudentID) == "" {
		flds = append(flds, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	if core.CleanString(st.Class) == "" {
		flds = append(flds, core.FieldError{Field: "class", Error: "this field is required"})
	}
	if core.CleanString(st.Section) == "" {
		flds = append(flds, core.FieldError{Field: "section", Error: "this field is required"})
	}
	if st.RollNo < 0 || st.RollNo > MaxRollNo {
		flds = append(flds, core.FieldError{Field: "roll_no", Error: "invalid roll number"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid student record"), flds...)
	}
	return nil
}
