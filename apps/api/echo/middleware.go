package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core/student"
)

const contextObjectKey = "object"

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

// studentMiddleware loads the student matching the `:id` param into the context.
func studentMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set(contextObjectKey, st)
			return next(ctx)
		}
	}
}

func contextStudent(ctx echo.Context) (student.Student, error) {
	st, ok := ctx.Get(contextObjectKey).(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return st, nil
}
