package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/authflowrepo"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/identity/oidclogin"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/config"
	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/server"
	"github.com/alecthomas/kingpin/v2"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

var (
	app        = kingpin.New("dead-horse", "Dead Horse storefront session service.")
	configPath = app.Flag("config", "Path to a YAML config file. Environment variables override it.").Envar("CONFIG_FILE").String()
	logLevel   = app.Flag("log-level", "Override the configured log level.").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	c, err := config.Load(*configPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, verr.Error())
		}
		return fmt.Errorf("loading config: %w", err)
	}
	configureLogging(c)
	displayAppname(c.GetAppName())

	if c.IsEphemeralSecret() {
		log.Warn().Msg("SESSION_SECRET not set; using an ephemeral secret, login links will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	if oidcCfg := c.GetOIDC(); oidcCfg.Enabled() {
		provider, err := oidclogin.New(ctx, oidclogin.Config{
			Issuer:       oidcCfg.Issuer,
			ClientID:     oidcCfg.ClientID,
			ClientSecret: oidcCfg.ClientSecret,
			RedirectURL:  c.GetBaseURL() + server.RouteOIDCCallback,
			Scopes:       oidcCfg.Scopes,
		}, authflowrepo.NewInMemoryRepo())
		if err != nil {
			return fmt.Errorf("oidc discovery: %w", err)
		}
		opts = append(opts, server.WithOIDCProvider(provider))
	}

	srv, err := server.New(c, opts...)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server.ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.RunJanitor(gctx, janitorInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server.Shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func configureLogging(c config.Config) {
	level := c.GetLogLevel()
	if *logLevel != "" {
		level = *logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
