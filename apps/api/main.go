package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kodi/apps/api/di"
	echoapi "github.com/trezcool/kodi/apps/api/echo"
	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/user"
)

func main() {
	c := di.New(core.NewConfig)
	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(conf *core.Config, logger core.Logger, server *echoapi.Server, closers di.Closers) error {
	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer closers.Close()
	defer logger.Info("Application stopped")

	if err := core.ParseEmailTemplates(conf, logger); err != nil {
		return err
	}
	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	debug := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

	var g errgroup.Group
	g.Go(func() error {
		if err := debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
		return nil
	})

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address()))
	g.Go(func() error {
		server.Start()
		return nil
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		var serverErr error
		select {
		case err := <-server.Errors():
			serverErr = errors.Wrap(err, "server error")
		case sig := <-server.ShutdownSignal():
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := debug.Shutdown(ctx); err != nil {
			logger.Warn(fmt.Sprintf("could not stop debug server: %v", err), err)
		}

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
		return serverErr
	})

	return g.Wait()
}
