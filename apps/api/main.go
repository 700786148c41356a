package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schooldesk/apps/api/echo"
	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/email"
	"github.com/trezcool/schooldesk/services/logger"
	"github.com/trezcool/schooldesk/services/metrics"
	"github.com/trezcool/schooldesk/services/sync"
	"github.com/trezcool/schooldesk/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logger.Named("db")

	// set up storage
	store, err := database.Open(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	m := metrics.New()

	deps := session.Deps{
		Students:   store.Students,
		History:    store.History,
		Settings:   store.Settings,
		SchoolName: conf.SchoolName,
		Store:      store,
	}
	if client := syncsvc.NewClient(conf, logger.Named("sync"), m); client != nil {
		deps.Syncer = client
	}
	sess := session.New(deps)
	defer func() {
		if err = sess.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger.Named("mail"))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger.Named("mail"))
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, storage %q, sync %v", conf.Build, store.Engine, sess.SyncEnabled()))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	ledger.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("session").Set(sess.ID)

	http.DefaultServeMux.Handle("/metrics", m.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Session:    sess,
			Validate:   validate,
			Translator: translator,
			MailSvc:    mailSvc,
			Metrics:    m,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
