package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/teal-fm/moodmix/config"
	"github.com/teal-fm/moodmix/db"
	"github.com/teal-fm/moodmix/models"
	"github.com/teal-fm/moodmix/oauth"
	"github.com/teal-fm/moodmix/pages"
	"github.com/teal-fm/moodmix/service/playlist"
	"github.com/teal-fm/moodmix/service/recommend"
	"github.com/teal-fm/moodmix/service/spotify"
	"github.com/teal-fm/moodmix/session"
)

const sweepInterval = 10 * time.Minute

type generator interface {
	Generate(ctx context.Context, prompt string) (*models.Recommendation, error)
}

type materializer interface {
	Materialize(ctx context.Context, token string, req playlist.Request) (*playlist.Result, error)
}

type application struct {
	cfg          *config.Config
	logger       *slog.Logger
	sessions     session.Store
	bridge       *oauth.Bridge
	generator    generator
	materializer materializer
	pages        *pages.Pages
}

func main() {
	app := &cli.Command{
		Name:  "moodmix",
		Usage: "Turn a mood into a Spotify playlist",
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "moodmix: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the web server",
		Action: serve,
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Draft a playlist for a prompt and print it as JSON",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "spotify-token",
				Usage:   "Spotify access token; when set the playlist is also created on Spotify",
				Sources: cli.EnvVars("SPOTIFY_ACCESS_TOKEN"),
			},
		},
		Action: generate,
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := charmlog.ParseLevel(cfg.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}

	opts := charmlog.Options{ReportTimestamp: true, Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		opts.Formatter = charmlog.JSONFormatter
	case "logfmt":
		opts.Formatter = charmlog.LogfmtFormatter
	}
	return slog.New(charmlog.NewWithOptions(w, opts))
}

// openStore builds the configured token store. The returned func releases
// whatever the store holds open.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	opts := session.CookieOptions{Secure: cfg.Server.Production}

	switch cfg.Session.Store {
	case "", "cookie":
		store := session.NewCookieStore(opts, []byte(cfg.Session.HashKey), []byte(cfg.Session.BlockKey), logger)
		return store, func() {}, nil

	case "sqlite":
		database, err := db.New(cfg.Session.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session database: %w", err)
		}
		if err := database.Initialize(); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("initializing session database: %w", err)
		}

		store := session.NewSQLStore(database, opts, cfg.Session.TTL, logger)
		sweepCtx, stop := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case now := <-ticker.C:
					store.Sweep(now)
				}
			}
		}()
		return store, func() { stop(); database.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown session.store %q", cfg.Session.Store)
	}
}

func newServices(cfg *config.Config, logger *slog.Logger) (*recommend.Generator, *playlist.Service) {
	client := spotify.NewClient(cfg.Spotify.APIURL)
	resolver := spotify.NewResolver(client, cfg.Spotify.SearchRPS, cfg.Resolve, logger.With("component", "resolver"))
	materializer := playlist.NewService(client, resolver, cfg.Resolve.Concurrency, logger.With("component", "playlist"))
	gen := recommend.NewGenerator(cfg.LLM, logger.With("component", "recommend"))
	return gen, materializer
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load()
	logger := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	gen, materializer := newServices(cfg, logger)

	app := &application{
		cfg:          cfg,
		logger:       logger,
		sessions:     store,
		bridge:       oauth.NewBridge(cfg.Spotify, cfg.Server.RootURL, store, logger.With("component", "oauth")),
		generator:    gen,
		materializer: materializer,
		pages:        pages.NewPages(),
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.routes(),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", "http://"+cfg.Addr(), "session_store", cfg.Session.Store)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func generate(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(prompt) == "" {
		return errors.New("a prompt is required")
	}

	cfg := config.Load()
	logger := newLogger(cfg.Log, os.Stderr)
	gen, materializer := newServices(cfg, logger)

	rec, err := gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidPrompt) {
			return err
		}
		return fmt.Errorf("%s: %w", recommend.KindOf(err).Message(), err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(rec); err != nil {
		return err
	}

	token := cmd.String("spotify-token")
	if token == "" {
		return nil
	}

	if cfg.Server.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
	}

	res, err := materializer.Materialize(ctx, token, playlist.Request{
		PlaylistName:        rec.PlaylistName,
		PlaylistDescription: rec.PlaylistDescription,
		Tracks:              rec.Tracks,
	})
	if err != nil {
		return err
	}
	return out.Encode(newCreatePlaylistResponse(res))
}
