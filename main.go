package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-contrib/expvar"
	"github.com/gin-gonic/gin"
	"github.com/johbar/pdf-info-service/internal/cache"
	pisnats "github.com/johbar/pdf-info-service/internal/cache/nats"
	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/johbar/pdf-info-service/internal/docinfo"
	"github.com/johbar/pdf-info-service/internal/inspector"
	"github.com/nats-io/nats.go"
	sloggin "github.com/samber/slog-gin"
)

func main() {
	asJSON := flag.Bool("json", false, "one shot mode: print document info as JSON instead of a text report")
	flag.Parse()

	pisConfig, err := config.NewPisConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: pisConfig.LogLevel, AddSource: pisConfig.LogLevel == slog.LevelDebug}))
	slog.SetDefault(logger)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = pisConfig.HttpClientDisableCompression
	httpClient := &http.Client{Transport: transport, Timeout: pisConfig.HttpClientTimeout}
	reader := docinfo.NewReader(pisConfig, logger)

	// one shot mode: don't start a server, just process a single file provided on the command line
	if flag.NArg() > 0 {
		// logs would mix up with the report on stdout
		quiet := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		ins := inspector.New(pisConfig, docinfo.NewReader(pisConfig, quiet), nil, quiet, httpClient)
		defer ins.Close()
		if err := ins.PrintInfo(context.Background(), os.Stdout, os.Stdin, flag.Arg(0), *asJSON); err != nil {
			os.Exit(2)
		}
		return
	}

	buildinfo, _ := debug.ReadBuildInfo()
	logger.Debug("Info", "buildinfo", buildinfo)
	if os.Getenv("GOMEMLIMIT") != "" {
		logger.Info("GOMEMLIMIT", "Bytes", debug.SetMemoryLimit(-1), "MBytes", debug.SetMemoryLimit(-1)/1024/1024)
	}

	var nc *nats.Conn
	if !pisConfig.DisableCache || pisConfig.NoHttp {
		nc, err = pisnats.SetupNatsConnection(*pisConfig, logger)
		if err != nil && (pisConfig.FailWithoutJetstream || pisConfig.NoHttp) {
			logger.Error("Fatal: NATS not connected", "err", err, "embedded", pisnats.NatsEmbedded)
			os.Exit(1)
		}
		if err != nil {
			logger.Warn("NATS not connected. Cache disabled.", "err", err)
		}
	}
	var pisCache cache.Cache = &cache.NopCache{}
	if nc != nil {
		defer nc.Drain()
		if !pisConfig.DisableCache {
			pisCache, err = cache.New(*pisConfig, logger, nc)
			if err != nil {
				logger.Error("Fatal: cache could not be initialized", "err", err)
				os.Exit(1)
			}
		}
	}

	ins := inspector.New(pisConfig, reader, pisCache, logger, httpClient)
	defer ins.Close()
	if nc != nil {
		if _, err := ins.RegisterNatsService(nc); err != nil {
			logger.Error("Could not register NATS micro service", "err", err)
			os.Exit(1)
		}
		logger.Info("NATS micro service registered.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pisConfig.NoHttp {
		logger.Info("Service started with no HTTP endpoints. Waiting for interrupt.")
		<-ctx.Done()
		return
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(sloggin.New(logger), gin.Recovery())
	ins.RegisterRoutes(router)
	router.GET("/debug/vars", expvar.Handler())

	srv := &http.Server{Addr: pisConfig.SrvAddr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "err", err)
		}
	}()

	logger.Info("Service started", "address", srv.Addr, "dateLocation", pisConfig.DateLocation.String(), "lang", pisConfig.Lang.String())
	defer logger.Info("HTTP Server stopped.")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		// Error starting or closing listener:
		logger.Error("Webserver failed", "err", err)
	}
}
