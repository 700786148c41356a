package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/settings"
)

type settingsApi struct {
	sess *session.Session
}

func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, sess *session.Session) {
	api := settingsApi{sess: sess}

	sg := g.Group("/settings")
	sg.GET("/:key", api.retrieve)
	sg.PUT("/:key", api.update, jwt)
}

type SettingPayload struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	key := ctx.Param("key")
	if !settings.IsValidKey(key) {
		return errHttpNotFound
	}

	value, err := api.sess.Settings.Get(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrapf(err, "getting setting %s", key)
	}
	// the signature is an opaque asset: an URL or a data URL
	if sig, ok := value.([]byte); ok {
		if sig == nil {
			value = nil
		} else {
			value = string(sig)
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding setting")
	}
	return ctx.JSON(http.StatusOK, SettingPayload{Key: key, Value: raw})
}

func (api *settingsApi) update(ctx echo.Context) error {
	key := ctx.Param("key")
	if !settings.IsValidKey(key) {
		return errHttpNotFound
	}

	var data SettingPayload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettingPayload")
	}

	var value interface{}
	var err error
	switch key {
	case settings.KeyFeeMap:
		var fm settings.FeeMap
		err = json.Unmarshal(data.Value, &fm)
		value = fm
	case settings.KeyPromotionDate:
		var date string
		err = json.Unmarshal(data.Value, &date)
		value = date
	case settings.KeyPrincipalSignature:
		var sig *string
		err = json.Unmarshal(data.Value, &sig)
		if sig != nil {
			value = *sig
		}
	}
	if err != nil {
		return core.NewValidationError(
			errors.Wrap(err, "decoding setting"),
			core.FieldError{Field: "value", Error: "invalid value for " + key},
		)
	}

	if err = api.sess.Settings.Put(ctx.Request().Context(), key, value); err != nil {
		return errors.Wrapf(err, "saving setting %s", key)
	}
	return ctx.NoContent(http.StatusNoContent)
}
