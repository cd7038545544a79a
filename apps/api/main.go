package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	dig_container "github.com/trezcool/studio/apps/api/di/dig"
	echoapi "github.com/trezcool/studio/apps/api/echo"
	"github.com/trezcool/studio/core"
	appfs "github.com/trezcool/studio/fs"
	"github.com/trezcool/studio/storage"
)

func main() {
	c := dig_container.New()

	err := c.Invoke(func(conf *core.Config, logger core.Logger, st *storage.Storage, server *echoapi.Server) {
		logger.Info(fmt.Sprintf("studio api %q starting (env %s, storage %s)", conf.Build, conf.Env, conf.Storage.Driver))
		core.ParseEmailTemplates(appfs.Templates, appfs.EmailTemplatesDir, conf.Debug, logger)

		defer func() {
			if err := st.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing storage: %v", err), err)
			}
			logger.Info("studio api stopped")
		}()

		startDebugServer(conf, logger)
		if err := serve(conf, server); err != nil {
			logger.Error(err.Error(), err)
		}
	})
	if err != nil {
		log.Fatal(err)
	}
}

// startDebugServer serves pprof & expvar (/debug/pprof, /debug/vars) on conf.Server.DebugHost.
func startDebugServer(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Driver)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Warn(fmt.Sprintf("debug server: %v", err), err)
		}
	}()
}

// serve runs the API until it fails or a shutdown signal arrives,
// then drains in-flight requests for at most conf.Server.ShutdownTimeout.
func serve(conf *core.Config, server *echoapi.Server) error {
	go server.Start()

	select {
	case err := <-server.Errors():
		return fmt.Errorf("api server: %w", err)

	case <-server.ShutdownSignal():
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				return fmt.Errorf("api server: forced close: %v (after %v)", closeErr, err)
			}
			return fmt.Errorf("api server: graceful shutdown: %w", err)
		}
		return nil
	}
}
