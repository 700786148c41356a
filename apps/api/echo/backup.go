package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/session"
)

type backupApi struct {
	sess *session.Session
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, sess *session.Session) {
	api := backupApi{sess: sess}

	g.GET("/backup", api.export, jwt)
	g.POST("/restore", api.restore, jwt)
	g.POST("/sync/push", api.push, jwt)
	g.POST("/sync/pull", api.pull, jwt)
}

func confirmed(ctx echo.Context) bool {
	ok, _ := strconv.ParseBool(ctx.QueryParam("confirm"))
	return ok
}

func (api *backupApi) export(ctx echo.Context) error {
	snap, err := api.sess.Backup.Export(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "exporting data")
	}
	return ctx.JSON(http.StatusOK, snap)
}

// restore replaces all data with the posted snapshot; `?confirm=true` is needed
// unless the snapshot is newer than the live data.
func (api *backupApi) restore(ctx echo.Context) error {
	var snap backup.Snapshot
	if err := ctx.Bind(&snap); err != nil {
		return errors.Wrap(err, "binding to Snapshot")
	}
	if err := api.sess.Backup.Restore(ctx.Request().Context(), snap, confirmed(ctx)); err != nil {
		return errors.Wrap(err, "restoring data")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *backupApi) push(ctx echo.Context) error {
	if err := api.sess.Push(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "pushing data")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *backupApi) pull(ctx echo.Context) error {
	if err := api.sess.Pull(ctx.Request().Context(), confirmed(ctx)); err != nil {
		return errors.Wrap(err, "pulling data")
	}
	return ctx.NoContent(http.StatusNoContent)
}
