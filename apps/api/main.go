package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	echoapi "github.com/trezcool/studentdir/apps/api/echo"
	"github.com/trezcool/studentdir/apps/shared"
	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/sample"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
	logsvc "github.com/trezcool/studentdir/services/logger"
	"github.com/trezcool/studentdir/services/metrics"
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

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	if err := conf.Validate(); err != nil {
		logger.Fatal(fmt.Sprintf("invalid config: %v", err), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up storage
	feed := student.NewFeed()
	store, err := shared.OpenStorage(ctx, conf, feed, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	if err = store.Run(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("starting storage: %v", err), err)
	}

	fallback, err := sample.Open(conf.FallbackDataPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading sample students: %v", err), err)
	}

	// set up services
	validate, translator := shared.NewValidator()
	recorder := metrics.NewRecorder()
	usrSvc := user.NewService(store.Users, conf, validate, translator)
	studSvc := student.NewService(store.Students, validate, translator, logger, recorder)
	dir := directory.New(studSvc, fallback, feed, recorder, conf.CacheSize)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, storage %q", conf.Build, conf.StorageEngine))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.StorageEngine)

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
			UserSvc:    usrSvc,
			StudentSvc: studSvc,
			Directory:  dir,
			Metrics:    recorder,
			Validate:   validate,
			Translator: translator,
		},
	)
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancelShutdown()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(shutdownCtx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
