package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greeeen013/QuizApp/internal/app"
	"github.com/greeeen013/QuizApp/internal/config"
	filestore "github.com/greeeen013/QuizApp/internal/infra/file"
	pgstore "github.com/greeeen013/QuizApp/internal/infra/postgres"
	redisstore "github.com/greeeen013/QuizApp/internal/infra/redis"
	"github.com/greeeen013/QuizApp/internal/store"
	transport "github.com/greeeen013/QuizApp/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the app server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz app server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Backend selection: postgres when configured, then redis, else the
	// default state file next to the config.
	var backend store.Backend
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		backend = pgstore.NewBackend(pool)
	case cfg.Redis.Addr != "":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		backend = redisstore.NewBackend(client)
	default:
		path := cfg.Store.Path
		if path == "" {
			path = "data/state.json"
		}
		backend = filestore.NewBackend(path)
	}

	debounce := config.Duration(cfg.Store.Debounce, store.DefaultDebounce)
	st := store.New(backend, store.WithDebounce(debounce))
	if err := st.Init(ctx); err != nil {
		return err
	}
	defer st.Close()

	ledger := app.NewLedger(st)
	streak := app.NewStreak(st)
	catalog := app.NewCatalog(st)
	engine := app.NewEngine(st, ledger, streak)

	// The streak self-heals daily gaps once per startup, after the load.
	if err := streak.CheckGap(); err != nil {
		return err
	}

	apiHandler := transport.NewAPIHandler(catalog, ledger, streak, engine)
	wsHandler := transport.NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	apiHandler.Register(mux)
	mux.HandleFunc("/ws/session", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz app on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	// An in-flight session must not be lost to shutdown.
	if session := engine.Active(); session != nil {
		if err := session.Background(); err != nil {
			log.Printf("pause active session: %v", err)
		}
	}
	st.Flush(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
