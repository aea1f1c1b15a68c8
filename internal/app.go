package internal

import (
	"amuletbot/internal/amulet"
	"amuletbot/internal/controllers"
	"amuletbot/internal/discord"
	"amuletbot/internal/providers"
	"amuletbot/internal/services"
	"amuletbot/internal/structures"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server

	conf   *structures.Config
	logger providers.Logger
	repo   services.GuildRepositoryInterface
	engine amulet.EngineInterface
	bot    *discord.Bot
}

func NewApp(healthController *controllers.HealthController, conf *structures.Config, logger providers.Logger, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface, repo services.GuildRepositoryInterface, engine amulet.EngineInterface, bot *discord.Bot) *App {
	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      newMux(healthController, conf, router, metrics),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:   conf,
		logger: logger,
		repo:   repo,
		engine: engine,
		bot:    bot,
	}
}

func newMux(healthController *controllers.HealthController, conf *structures.Config, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) *http.ServeMux {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	instrumentedAPI := providers.MetricsMiddleware(metrics, router, apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

// Run loads the document, re-arms pending expiries, connects to Discord and serves
// HTTP until SIGINT or SIGTERM.
func (a *App) Run() error {
	defer a.logger.Close()
	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)

	if err := a.repo.Initialize(); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if err := a.engine.Restore(); err != nil {
		a.logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}
	defer a.engine.Stop()

	if err := a.bot.Open(); err != nil {
		return err
	}
	defer func() {
		if err := a.bot.Close(); err != nil {
			a.logger.Errorf(providers.TypeApp, "Discord close error: %s", err)
		}
	}()

	serverErr := make(chan error, 1)
	if a.conf.WebServer.Enabled {
		go func() {
			a.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", a.WebServer.Addr)
			if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	if a.conf.WebServer.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.WebServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	a.logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}

// Backup loads the document and copies it into the backup directory.
func (a *App) Backup() (string, error) {
	defer a.logger.Close()
	if err := a.repo.Initialize(); err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	return a.repo.CreateBackup()
}

// DeployCommands registers the slash commands with Discord.
func (a *App) DeployCommands() (int, error) {
	defer a.logger.Close()
	return a.bot.DeployCommands()
}
