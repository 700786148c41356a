package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/session"
)

type feeApi struct {
	sess     *session.Session
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, _ echo.MiddlewareFunc, deps ServerDeps) {
	api := feeApi{sess: deps.Session, validate: deps.Validate}

	fg := g.Group("/fees")
	fg.GET("/total", api.total)
	fg.GET("/monthly", api.monthly)
	fg.GET("/classes/:class/monthly", api.classMonthly)
	fg.GET("/classes/:class/months/:month", api.classMonth)
}

// total computes what a student of `class` owes for the `month` params.
func (api *feeApi) total(ctx echo.Context) error {
	var data TotalRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TotalRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	total, err := api.sess.Ledger.ComputeTotal(ctx.Request().Context(), data.Class, data.Months)
	if err != nil {
		if errors.Cause(err) == ledger.ErrNoFee {
			return core.NewValidationError(err, core.FieldError{Field: "class", Error: ledger.ErrNoFee.Error()})
		}
		return errors.Wrap(err, "computing total")
	}
	return ctx.JSON(http.StatusOK, TotalResponse{Total: total})
}

func (api *feeApi) monthly(ctx echo.Context) error {
	totals, err := api.sess.Ledger.MonthlyTotals(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing monthly totals")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *feeApi) classMonthly(ctx echo.Context) error {
	totals, err := api.sess.Ledger.ClassMonthlyTotals(ctx.Request().Context(), core.CleanString(ctx.Param("class")))
	if err != nil {
		return errors.Wrap(err, "computing class monthly totals")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *feeApi) classMonth(ctx echo.Context) error {
	total, err := api.sess.Ledger.ClassMonthTotal(ctx.Request().Context(), core.CleanString(ctx.Param("class")), ctx.Param("month"))
	if err != nil {
		return errors.Wrap(err, "computing class month total")
	}
	return ctx.JSON(http.StatusOK, TotalResponse{Total: total})
}

type (
	TotalRequest struct {
		Class  string   `query:"class" json:"class" validate:"required,notblank"`
		Months []string `query:"month" json:"months" validate:"required,min=1,months"`
	}

	TotalResponse struct {
		Total float64 `json:"total"`
	}
)

func (tr *TotalRequest) Validate(validate *validator.Validate) error {
	tr.Class = core.CleanString(tr.Class)
	for i, m := range tr.Months {
		tr.Months[i] = ledger.CanonicalMonth(m)
	}
	return validate.Struct(tr)
}
