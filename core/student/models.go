package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooldesk/core"
)

// Student is an admitted student's record.
type Student struct {
	// identity
	StudentID string `json:"student_id"`
	RollNo    int    `json:"roll_no"`
	Class     string `json:"class"`
	Section   string `json:"section"`

	// personal & guardian
	Name          string `json:"name"`
	FatherName    string `json:"father_name"`
	MotherName    string `json:"mother_name"`
	DateOfBirth   string `json:"date_of_birth"`
	Gender        string `json:"gender"`
	Address       string `json:"address"`
	IdentityNo    string `json:"identity_no"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	AdmissionDate string `json:"admission_date"`

	// financial
	Dues       float64        `json:"dues"`
	FeeHistory []PaymentEvent `json:"fee_history"`

	// free-form fields not covered above
	Extra map[string]string `json:"extra,omitempty"`
}

// PaymentEvent is an append-only fee payment; Dues is the balance after the payment.
type PaymentEvent struct {
	Date   time.Time `json:"date"` // UTC
	Months []string  `json:"months"`
	Amount float64   `json:"amount"`
	Dues   float64   `json:"dues"`
}

// Clone returns a deep copy of s.
func (s Student) Clone() Student {
	c := s
	if s.FeeHistory != nil {
		c.FeeHistory = make([]PaymentEvent, len(s.FeeHistory))
		for i, ev := range s.FeeHistory {
			ev.Months = append([]string(nil), ev.Months...)
			c.FeeHistory[i] = ev
		}
	}
	if s.Extra != nil {
		c.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// LastPayment returns the most recent payment event, if any.
func (s Student) LastPayment() (PaymentEvent, bool) {
	if len(s.FeeHistory) == 0 {
		return PaymentEvent{}, false
	}
	return s.FeeHistory[len(s.FeeHistory)-1], true
}

// NewStudent contains information needed to admit a new Student.
type NewStudent struct {
	Class         string            `json:"class" validate:"required,notblank"`
	Section       string            `json:"section" validate:"required,notblank"`
	Name          string            `json:"name" validate:"required,notblank"`
	FatherName    string            `json:"father_name"`
	MotherName    string            `json:"mother_name"`
	DateOfBirth   string            `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender        string            `json:"gender" validate:"omitempty,oneof=male female other"`
	Address       string            `json:"address"`
	IdentityNo    string            `json:"identity_no"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email" validate:"omitempty,email"`
	AdmissionDate string            `json:"admission_date" validate:"omitempty,datetime=2006-01-02"`
	Extra         map[string]string `json:"extra" validate:"omitempty,dive,keys,alphanum_,endkeys"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Class = core.CleanString(ns.Class)
	ns.Section = core.CleanString(ns.Section)
	ns.Name = core.CleanString(ns.Name)
	ns.FatherName = core.CleanString(ns.FatherName)
	ns.MotherName = core.CleanString(ns.MotherName)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Empty fields keep their current value.
type UpdateStudent struct {
	Class       string            `json:"class"`
	Section     string            `json:"section"`
	Name        string            `json:"name"`
	FatherName  string            `json:"father_name"`
	MotherName  string            `json:"mother_name"`
	DateOfBirth string            `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string            `json:"gender" validate:"omitempty,oneof=male female other"`
	Address     string            `json:"address"`
	IdentityNo  string            `json:"identity_no"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email" validate:"omitempty,email"`
	Dues        *float64          `json:"dues"`
	Extra       map[string]string `json:"extra" validate:"omitempty,dive,keys,alphanum_,endkeys"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Class = core.CleanString(us.Class)
	us.Section = core.CleanString(us.Section)
	us.Name = core.CleanString(us.Name)
	us.Gender = core.CleanString(us.Gender, true /* lower */)
	us.Email = core.CleanString(us.Email, true /* lower */)
	return validate.Struct(us)
}

// apply returns a copy of orig with the non-empty fields of us set.
func (us UpdateStudent) apply(orig Student) Student {
	st := orig
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&st.Class, us.Class)
	set(&st.Section, us.Section)
	set(&st.Name, us.Name)
	set(&st.FatherName, us.FatherName)
	set(&st.MotherName, us.MotherName)
	set(&st.DateOfBirth, us.DateOfBirth)
	set(&st.Gender, us.Gender)
	set(&st.Address, us.Address)
	set(&st.IdentityNo, us.IdentityNo)
	set(&st.Phone, us.Phone)
	set(&st.Email, us.Email)
	if us.Dues != nil {
		st.Dues = *us.Dues
	}
	if us.Extra != nil {
		st.Extra = make(map[string]string, len(us.Extra))
		for k, v := range us.Extra {
			st.Extra[k] = v
		}
	}
	st.FeeHistory = append([]PaymentEvent(nil), orig.FeeHistory...)
	return st
}

// Promotion moves every student of a class to another one.
type Promotion struct {
	FromClass string `json:"from_class" validate:"required,notblank"`
	ToClass   string `json:"to_class" validate:"required,notblank,nefield=FromClass"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (p *Promotion) Validate(validate *validator.Validate) error {
	p.FromClass = core.CleanString(p.FromClass)
	p.ToClass = core.CleanString(p.ToClass)
	p.Date = core.CleanString(p.Date)
	return validate.Struct(p)
}
