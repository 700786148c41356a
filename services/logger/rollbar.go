package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/schooldesk/core"
)

// RollbarLogger prints to a std logger and reports to rollbar when enabled.
// A named logger tags its reports with the component it serves (db, sync, mail).
type RollbarLogger struct {
	std       *log.Logger
	component string
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetCustom(map[string]interface{}{"school": conf.SchoolName})
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Named returns a logger writing to the same output, prefixed with the upper-cased component.
func (l RollbarLogger) Named(component string) *RollbarLogger {
	prefix := strings.ToUpper(component) + " : "
	return &RollbarLogger{
		std:       log.New(l.std.Writer(), prefix, l.std.Flags()),
		component: component,
	}
}

// expected fmt: msg | error, map[string]interface{}, core.Actor
// extra maps are merged into one, with the component added.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var actorSet bool
	extras := make(map[string]interface{})
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Actor:
			if !actorSet { // only set one Actor
				rollbar.SetPerson(a.ID, a.Username, "")
				actorSet = true
			}
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if !actorSet {
		rollbar.ClearPerson()
	}
	if l.component != "" {
		extras["component"] = l.component
	}
	if len(extras) > 0 {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if _, ok := arg.(core.Actor); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
