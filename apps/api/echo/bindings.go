package echoapi

import (
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schooldesk/core/student"
)

var orderingParam = "ordering"

type (
	OrderBy struct {
		Field     string
		Ascending bool
	}

	Ordering struct {
		Orderings []OrderBy
	}
)

// Bind reads `?ordering=class,-roll_no`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if _, known := studentOrderings[field]; known {
			ord.Orderings = append(ord.Orderings, OrderBy{Field: field, Ascending: !descending})
		}
	}
}

// compare returns <0, 0 or >0
var studentOrderings = map[string]func(a, b student.Student) int{
	"student_id":     func(a, b student.Student) int { return strings.Compare(a.StudentID, b.StudentID) },
	"class":          func(a, b student.Student) int { return strings.Compare(a.Class, b.Class) },
	"section":        func(a, b student.Student) int { return strings.Compare(a.Section, b.Section) },
	"roll_no":        func(a, b student.Student) int { return a.RollNo - b.RollNo },
	"name":           func(a, b student.Student) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"admission_date": func(a, b student.Student) int { return strings.Compare(a.AdmissionDate, b.AdmissionDate) },
	"dues": func(a, b student.Student) int {
		switch {
		case a.Dues < b.Dues:
			return -1
		case a.Dues > b.Dues:
			return 1
		}
		return 0
	},
}

func (ord *Ordering) Sort(students []student.Student) {
	if len(ord.Orderings) == 0 {
		return
	}
	sort.SliceStable(students, func(i, j int) bool {
		for _, o := range ord.Orderings {
			c := studentOrderings[o.Field](students[i], students[j])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
