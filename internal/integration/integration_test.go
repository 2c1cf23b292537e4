package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/greeeen013/QuizApp/internal/app"
	"github.com/greeeen013/QuizApp/internal/domain"
	pgbackend "github.com/greeeen013/QuizApp/internal/infra/postgres"
	pgmigrations "github.com/greeeen013/QuizApp/internal/infra/postgres/migrations"
	"github.com/greeeen013/QuizApp/internal/store"
)

func TestStatePersistsAcrossProcessesEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	dsn, cleanup := startPostgres(t, ctx)
	defer cleanup()
	runMigrations(t, ctx, dsn)

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	// First "process": author a quiz and play it to completion.
	st := store.New(pgbackend.NewBackend(pool), store.WithDebounce(10*time.Millisecond))
	if err := st.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	catalog := app.NewCatalog(st)
	ledger := app.NewLedger(st)
	streak := app.NewStreak(st)
	engine := app.NewEngine(st, ledger, streak)

	quiz, err := catalog.AddQuiz("Capitals", "", []domain.Question{{
		ID:   "q1",
		Text: "capital of France?",
		Answers: []domain.Answer{
			{ID: "a-right", Text: "Paris", IsCorrect: true},
			{ID: "a-wrong", Text: "Lyon"},
		},
	}})
	if err != nil {
		t.Fatalf("add quiz: %v", err)
	}

	manual := true
	if _, err := catalog.UpdateSettings(app.SettingsUpdate{ManualConfirmation: &manual}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	session, err := engine.Start(quiz.ID, app.StartOptions{})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if err := session.Toggle("a-right"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := session.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	result, ok := session.Result()
	if !ok || !result.Saved {
		t.Fatalf("expected saved run, got ok=%v result=%+v", ok, result)
	}
	st.Flush(ctx)
	st.Close()

	// Second "process": a fresh store over the same database sees everything.
	st2 := store.New(pgbackend.NewBackend(pool))
	if err := st2.Init(ctx); err != nil {
		t.Fatalf("init second store: %v", err)
	}
	catalog2 := app.NewCatalog(st2)
	ledger2 := app.NewLedger(st2)
	streak2 := app.NewStreak(st2)

	loaded, err := catalog2.Quiz(quiz.ID)
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if loaded.Title != "Capitals" || len(loaded.Questions) != 1 {
		t.Fatalf("expected quiz persisted, got %+v", loaded)
	}
	runs, err := ledger2.Runs()
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ScorePercentage != 100 {
		t.Fatalf("expected one perfect run, got %+v", runs)
	}
	balance, err := ledger2.Diamonds()
	if err != nil {
		t.Fatalf("diamonds: %v", err)
	}
	if balance != 0.5 {
		t.Fatalf("expected 0.5 diamonds (1 * 0.5 * 1.0), got %v", balance)
	}
	streakData, err := streak2.Data()
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streakData.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %+v", streakData)
	}
	settings, err := catalog2.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !settings.ManualConfirmation {
		t.Fatalf("expected settings persisted, got %+v", settings)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizapp", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizapp"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quizapp:quizpass@%s:%s/quizapp?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
