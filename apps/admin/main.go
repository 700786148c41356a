package main

import (
	"log"
	"os"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/services/logger"
	"github.com/trezcool/schooldesk/services/metrics"
	"github.com/trezcool/schooldesk/services/sync"
	"github.com/trezcool/schooldesk/storage/database"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up storage
	store, err := database.Open(conf, logger.Named("db"))
	errAndDie(err)

	deps := session.Deps{
		Students:   store.Students,
		History:    store.History,
		Settings:   store.Settings,
		SchoolName: conf.SchoolName,
		Store:      store,
	}
	if client := syncsvc.NewClient(conf, logger.Named("sync"), metrics.New()); client != nil {
		deps.Syncer = client
	}
	sess := session.New(deps)

	// start CLI
	cli := commandLine{
		store: store,
		sess:  sess,
		out:   os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := sess.Close(); cErr != nil {
		logger.Error("closing session", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
