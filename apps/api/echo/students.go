package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/metrics"
)

type studentApi struct {
	sess       *session.Session
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	mailSvc    core.EmailService
	metrics    *metrics.Metrics
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		sess:       deps.Session,
		validate:   deps.Validate,
		translator: deps.Translator,
		logger:     deps.Logger,
		mailSvc:    deps.MailSvc,
		metrics:    deps.Metrics,
	}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.GET("/next-roll", api.nextRollNo)
	sg.POST("", api.admit, jwt)
	sg.POST("/restore", api.restore, jwt)
	sg.POST("/promote", api.promote, jwt)

	// detail endpoints
	dg := sg.Group("/:id", studentMiddleware(api.sess.Students))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, jwt)
	dg.DELETE("", api.destroy, jwt)
	dg.GET("/history", api.history)
	dg.POST("/payments", api.pay, jwt)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	var filter StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()

	var students []student.Student
	var err error
	if filter.Class != "" && filter.Section != "" {
		students, err = api.sess.Students.QueryByClassSection(ctx.Request().Context(), filter.Class, filter.Section)
	} else {
		students, err = api.sess.Students.QueryAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	students = filter.apply(students)
	if students == nil {
		students = []student.Student{}
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)
	ordering.Sort(students)

	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) nextRollNo(ctx echo.Context) error {
	var filter StudentFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to StudentFilter")
	}
	filter.Clean()
	if filter.Class == "" || filter.Section == "" {
		return core.NewValidationError(
			errors.New("class and section are required"),
			core.FieldError{Field: "class", Error: "this field is required"},
			core.FieldError{Field: "section", Error: "this field is required"},
		)
	}

	roll, err := api.sess.Students.NextRollNo(ctx.Request().Context(), filter.Class, filter.Section)
	if err != nil {
		return errors.Wrap(err, "computing next roll number")
	}
	return ctx.JSON(http.StatusOK, NextRollResponse{RollNo: roll, Full: roll == 0})
}

func (api *studentApi) admit(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.sess.Students.Admit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "admitting student")
	}
	api.metrics.ObserveAdmission()

	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) restore(ctx echo.Context) error {
	var data student.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}

	st, err := api.sess.Students.Restore(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "restoring student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) promote(ctx echo.Context) error {
	var data student.Promotion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Promotion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	promoted, err := api.sess.Students.Promote(ctx.Request().Context(), data.FromClass, data.ToClass)
	if err != nil {
		return errors.Wrap(err, "promoting students")
	}
	if data.Date != "" {
		if err = api.sess.Settings.PutPromotionDate(ctx.Request().Context(), data.Date); err != nil {
			return errors.Wrap(err, "saving promotion date")
		}
	}
	return ctx.JSON(http.StatusOK, promoted)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	st, err = api.sess.Students.Edit(ctx.Request().Context(), st.StudentID, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

// destroy returns the deleted record, to be posted back to /students/restore for undo.
func (api *studentApi) destroy(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	snapshot, err := api.sess.Students.Remove(ctx.Request().Context(), st.StudentID)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, snapshot)
}

func (api *studentApi) history(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	entries, err := api.sess.History.ListByStudent(ctx.Request().Context(), st.StudentID)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	items, err := newHistoryItems(entries)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, items)
}

// pay records a payment. Without an amount, the amount comes from the fee map and the dues are
// reduced by it; with both amount and dues, they are recorded as given.
func (api *studentApi) pay(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data PaymentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}
	np := ledger.NewPayment{Months: data.Months}
	if err = np.Validate(api.validate); err != nil {
		return err
	}

	var ev student.PaymentEvent
	switch {
	case data.Amount != nil && data.Dues != nil:
		ev = student.PaymentEvent{Date: core.Now(), Months: np.Months, Amount: *data.Amount, Dues: *data.Dues}
		st, err = api.sess.Ledger.RecordPayment(ctx.Request().Context(), st.StudentID, ev)
		if err == nil {
			ev, _ = st.LastPayment()
		}
	case data.Amount != nil || data.Dues != nil:
		return core.NewValidationError(
			errors.New("amount and dues go together"),
			core.FieldError{Field: "dues", Error: "amount and dues must be given together"},
		)
	default:
		st, ev, err = api.sess.Ledger.Pay(ctx.Request().Context(), st.StudentID, np)
	}
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	api.metrics.ObservePayment(ev.Amount)

	if msg := ledger.ReceiptMessage(api.sess.SchoolName(), st, ev); msg != nil && api.mailSvc != nil {
		api.mailSvc.SendMessages(msg)
	}
	return ctx.JSON(http.StatusCreated, PaymentResponse{Student: st, Payment: ev})
}

type (
	StudentFilter struct {
		Class   string `query:"class"`
		Section string `query:"section"`
	}

	NextRollResponse struct {
		RollNo int  `json:"roll_no"`
		Full   bool `json:"full"`
	}

	PaymentRequest struct {
		Months []string `json:"months"`
		Amount *float64 `json:"amount"`
		Dues   *float64 `json:"dues"`
	}

	PaymentResponse struct {
		Student student.Student      `json:"student"`
		Payment student.PaymentEvent `json:"payment"`
	}
)

func (f *StudentFilter) Clean() {
	f.Class = core.CleanString(f.Class)
	f.Section = core.CleanString(f.Section)
}

func (f StudentFilter) apply(students []student.Student) []student.Student {
	if f.Class == "" || f.Section != "" {
		return students
	}
	filtered := make([]student.Student, 0)
	for _, st := range students {
		if st.Class == f.Class {
			filtered = append(filtered, st)
		}
	}
	return filtered
}
