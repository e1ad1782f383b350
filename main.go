package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qmdx00/lifecycle"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"

	"calendar-photo-converter/core"
	"calendar-photo-converter/pkg/config"
	"calendar-photo-converter/pkg/gcal"
	"calendar-photo-converter/pkg/resources"
	"calendar-photo-converter/pkg/servers"
	"calendar-photo-converter/pkg/vision"
)

const (
	name    = "calendar-photo-converter"
	version = "1.0.0"
)

func main() {
	app := &cli.App{
		Name:    name,
		Usage:   "Turn a photo of a calendar into structured calendar events.",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			extractCommand(),
		},
		DefaultCommand: "serve",
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("application failed")
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server and the frontend.",
		Action: func(c *cli.Context) error {
			return serve(c.Context)
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract the events of a calendar image and print them as JSON.",
		ArgsUsage: "<image>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one image path is required", 2)
			}

			return extract(c.Context, c.Args().First(), c.App.Writer)
		},
	}
}

func serve(ctx context.Context) error {
	// 1. Config (Logger base included)
	ctx, cfg, err := config.Default(ctx, name, version)
	if err != nil {
		return err
	}

	startupLogger := log.Ctx(ctx).With().Str("stage", "startup").Str("component", "main").Logger()
	shutdownLogger := log.Ctx(ctx).With().Str("stage", "shut down").Str("component", "main").Logger()

	startupLogger.Info().Msg("application starting up")
	defer shutdownLogger.Info().Msg("application stopped")

	// 2. Telemetry (traces/metrics/logs)
	stopTelemetry, err := resources.CreateTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to setup otel telemetry: %w", err)
	}
	defer stopTelemetry(ctx, 15*time.Second)

	// 3. Bridge zerolog -> OTel logs, stdout output is kept
	log.Logger = log.Logger.Hook(resources.NewLogBridgeHook(global.GetLoggerProvider(), name, version))
	ctx = log.Logger.WithContext(ctx)

	// 4. Resources
	var closables []resources.Closable

	repository := core.NewNopRepository()

	pool, err := resources.CreateDatabaseConnectionPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("unable to create database connection pool: %w", err)
	}

	if pool != nil {
		closables = append(closables, pool)

		err = core.EnsureSchema(ctx, pool)
		if err != nil {
			pool.Close()
			return fmt.Errorf("unable to prepare database schema: %w", err)
		}

		repository = core.NewRepository(pool)
	}

	if cfg.Vision.APIKey == "" {
		startupLogger.Warn().Msg("ANTHROPIC_API_KEY is not set, calendar analysis will fail")
	}

	// 5. Wiring
	requestor := core.NewRequestor(vision.NewClient(cfg.Vision), cfg.Vision.MaxTokens)
	analyzer := core.NewAnalyzer(requestor, repository)
	handlers := core.NewHandlers(analyzer, gcal.NewGateway(cfg.Google), core.BuildInfo{
		Version:   version,
		HasAPIKey: cfg.Vision.APIKey != "",
	})

	// 6. Daemons/servers setup
	gin.SetMode(gin.ReleaseMode)

	restHandler := gin.New()
	restHandler.Use(gin.Recovery())
	restHandler.Use(otelgin.Middleware(name))
	restHandler.Use(resources.NewHTTPMetrics(otel.GetMeterProvider(), name).Middleware())
	restHandler.Use(resources.CORS())
	restHandler.Use(resources.RequestLogger())

	api := restHandler.Group("/api")
	api.POST("/analyze-calendar", handlers.AnalyzeCalendar)
	api.GET("/analyses/:id", handlers.GetAnalysis)
	api.GET("/health", handlers.Health)
	api.GET("/status", handlers.Status)
	api.GET("/auth/google", handlers.AuthGoogle)
	api.GET("/auth/callback", handlers.AuthCallback)
	api.POST("/calendar/add-events", handlers.AddEvents)

	restHandler.NoRoute(resources.StaticFiles(cfg.StaticDir))

	debugHandler := http.NewServeMux()
	debugHandler.HandleFunc("/debug/pprof/", pprof.Index)
	debugHandler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugHandler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugHandler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugHandler.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// 7. Daemons/servers lifecycle
	app := lifecycle.NewApp(
		lifecycle.WithName(name),
		lifecycle.WithVersion(version),
	)

	app.Attach(servers.BuildBaseServer(closables...))
	app.Attach(servers.BuildHttpServer("debug-server", servers.NewServer(cfg.Host, cfg.DebugPort, debugHandler)))
	app.Attach(servers.BuildHttpServer("rest-server", servers.NewServer(cfg.Host, cfg.Port, restHandler)))

	startupLogger.Info().Str("address", cfg.Host+":"+cfg.Port).Msg("application running")

	// 8. Wait for shutdown signal
	err = app.Run()
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("runtime error")
		return err
	}

	return nil
}

type extractFailure struct {
	Error       string `json:"error"`
	RawResponse string `json:"rawResponse,omitempty"`
}

func extract(ctx context.Context, path string, out io.Writer) error {
	_, cfg, err := config.Default(ctx, name, version)
	if err != nil {
		return err
	}

	// stdout carries the events
	log.Logger = config.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)
	ctx = log.Logger.WithContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read image: %w", err)
	}

	image := core.Image{Data: data, FileName: path}

	err = core.CheckDeclaredType("", data)
	if err != nil {
		return err
	}

	requestor := core.NewRequestor(vision.NewClient(cfg.Vision), cfg.Vision.MaxTokens)

	result, err := core.NewAnalyzer(requestor, nil).Analyze(ctx, image)

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	if err != nil {
		failure := extractFailure{Error: err.Error()}

		var perr *core.ParseError
		if errors.As(err, &perr) {
			failure.RawResponse = perr.Raw
		}

		_ = encoder.Encode(failure)

		return cli.Exit("", 1)
	}

	return encoder.Encode(result.Events)
}
