package ledger

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/student"
)

// Totals maps a calendar month name to a collected amount.
type Totals map[string]float64

// SumByMonth spreads each payment evenly over its months: every month gets amount / len(months).
func SumByMonth(students []student.Student) Totals {
	totals := make(Totals)
	for _, st := range students {
		for _, ev := range st.FeeHistory {
			if len(ev.Months) == 0 {
				continue
			}
			share := ev.Amount / float64(len(ev.Months))
			for _, m := range ev.Months {
				totals[CanonicalMonth(m)] += share
			}
		}
	}
	return totals
}

// CanonicalMonth returns the english month name matching m case-insensitively ("april" -> "April"),
// or m unchanged if it is not a month name.
func CanonicalMonth(m string) string {
	m = strings.TrimSpace(m)
	for mo := time.January; mo <= time.December; mo++ {
		if strings.EqualFold(mo.String(), m) {
			return mo.String()
		}
	}
	return m
}

// NewPayment is a payment request; the amount is derived from the fee map.
type NewPayment struct {
	Months []string `json:"months" validate:"required,min=1,months"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	for i, m := range np.Months {
		np.Months[i] = CanonicalMonth(m)
	}
	return validate.Struct(np)
}

const ReceiptCategory = "receipt"

// ReceiptMessage returns the payment receipt for the student's guardian, nil without an email address.
func ReceiptMessage(schoolName string, st student.Student, ev student.PaymentEvent) *core.EmailMessage {
	if st.Email == "" {
		return nil
	}
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "%s - fee receipt\n\n", schoolName)
	_, _ = fmt.Fprintf(body, "Student: %s (%s)\n", st.Name, st.StudentID)
	_, _ = fmt.Fprintf(body, "Class: %s - Section: %s - Roll: %d\n", st.Class, st.Section, st.RollNo)
	_, _ = fmt.Fprintf(body, "Date: %s\n", ev.Date.Format("2006-01-02"))
	_, _ = fmt.Fprintf(body, "Months: %s\n", strings.Join(ev.Months, ", "))
	_, _ = fmt.Fprintf(body, "Amount paid: %.2f\n", ev.Amount)
	_, _ = fmt.Fprintf(body, "Remaining dues: %.2f\n", ev.Dues)

	name := st.FatherName
	if name == "" {
		name = st.MotherName
	}
	return &core.EmailMessage{
		To:       []mail.Address{{Name: name, Address: st.Email}},
		Subject:  "Fee receipt for " + st.Name,
		BodyStr:  body.String(),
		Category: ReceiptCategory,
		Ref:      st.StudentID,
	}
}
