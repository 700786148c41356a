package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/session"
)

type historyApi struct {
	sess *session.Session
}

func registerHistoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, sess *session.Session) {
	api := historyApi{sess: sess}

	g.GET("/history", api.query, jwt)
}

// HistoryItem is an audit entry with the fields that changed between its snapshots.
type HistoryItem struct {
	history.Entry
	Changes []history.Change `json:"changes"`
}

func newHistoryItems(entries []history.Entry) ([]HistoryItem, error) {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		changes, err := history.ChangedFields(e.Before, e.After)
		if err != nil {
			return nil, errors.Wrapf(err, "diffing history entry %d", e.ID)
		}
		items = append(items, HistoryItem{Entry: e, Changes: changes})
	}
	return items, nil
}

// query lists all entries, newest first; `?student=` restricts them to one student.
func (api *historyApi) query(ctx echo.Context) error {
	studentID := core.CleanString(ctx.QueryParam("student"))

	var entries []history.Entry
	var err error
	if studentID != "" {
		entries, err = api.sess.History.ListByStudent(ctx.Request().Context(), studentID)
	} else {
		entries, err = api.sess.History.ListAll(ctx.Request().Context())
	}
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	items, err := newHistoryItems(entries)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, items)
}
