package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Yiteng-CHEN/snaplearn/internal/aiservice"
	"github.com/Yiteng-CHEN/snaplearn/internal/grading"
	"github.com/Yiteng-CHEN/snaplearn/internal/handler"
	appI18n "github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/metrics"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the homework HTTP API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "snaplearn.db", "SQLite database path")
	f.StringP("lang", "l", "zh", "Default language of comments and explanations (zh, en)")
	f.String("ai-failure-mode", string(grading.FailStrict), "What an AI outage does to a single-answer submission (strict, lenient)")
	f.Int("mistake-sample", grading.DefaultMistakeSample, "Maximum entries returned by one mistake book view")
	f.Duration("reconcile-interval", time.Minute, "How often pending results are re-graded (0 disables)")
	f.StringSlice("homeworks", nil, "Homework JSON files to import at startup (repeatable)")
	f.String("seed-teacher", "", "Username of a verified teacher created if missing and used to own imported homework")
	addAIFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func aiServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai-serve",
		Short: "Start the AI grading backend (POST /grade, POST /ask)",
		RunE:  runAIServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8081", "HTTP listen address")
	f.StringP("lang", "l", "zh", "Language of prompts and failure comments (zh, en)")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := setup(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	mode, err := grading.ParseFailureMode(v.GetString("ai-failure-mode"))
	if err != nil {
		return err
	}
	backend, err := newBackend(ctx, v)
	if err != nil {
		return err
	}
	svc := grading.New(db, backend, grading.Config{
		FailureMode:   mode,
		MistakeSample: v.GetInt("mistake-sample"),
	})

	if err := seedHomeworks(ctx, db, svc, v); err != nil {
		return err
	}
	if n, err := db.UserCount(ctx); err != nil {
		return fmt.Errorf("count users: %w", err)
	} else if n == 0 {
		slog.Warn("no users yet; every request will be rejected until one is created with `snaplearn user add`")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	h := handler.New(svc, db)
	r := chi.NewRouter()
	r.Use(handler.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(appI18n.Middleware)
	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	h.Routes(r)

	if interval := v.GetDuration("reconcile-interval"); interval > 0 {
		go svc.RunReconciler(ctx, interval)
	}

	slog.Info("starting server",
		"addr", v.GetString("addr"),
		"lang", lang,
		"ai_mode", v.GetString("ai-mode"),
		"ai_failure_mode", mode,
		"reconcile_interval", v.GetDuration("reconcile-interval"),
	)
	return listen(ctx, v.GetString("addr"), r)
}

func runAIServe(cmd *cobra.Command, _ []string) error {
	v := setup(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	client, err := newLLMClient(ctx, v)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware)
	aiservice.New(client).Routes(r)

	slog.Info("starting AI backend",
		"addr", v.GetString("addr"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"prompt_variant", v.GetString("prompt-variant"),
	)
	return listen(ctx, v.GetString("addr"), r)
}

// listen serves h on addr until ctx is cancelled, then drains in-flight requests.
func listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		slog.Info("shutting down", "addr", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("could not stop server gracefully", "error", err)
			return srv.Close()
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// seedHomeworks imports the configured homework files as the seed teacher.
// Files imported before are skipped.
func seedHomeworks(ctx context.Context, db *store.Store, svc *grading.Service, v *viper.Viper) error {
	paths := v.GetStringSlice("homeworks")
	username := v.GetString("seed-teacher")
	if username == "" {
		if len(paths) > 0 {
			return errors.New("--homeworks requires --seed-teacher")
		}
		return nil
	}
	teacher, err := ensureUser(ctx, db, model.User{
		Username:        username,
		DisplayName:     username,
		Role:            model.UserRoleTeacher,
		VerifiedTeacher: true,
		Active:          true,
	})
	if err != nil {
		return fmt.Errorf("seed teacher: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		ids, err := svc.ImportHomeworkFile(ctx, teacher, path, data)
		if errors.Is(err, grading.ErrConflict) {
			slog.Info("homework file skipped", "path", path, "reason", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		slog.Info("imported homework", "path", path, "ids", ids)
	}
	return nil
}

// ensureUser returns the user named u.Username, creating it from u if missing.
func ensureUser(ctx context.Context, db *store.Store, u model.User) (*model.User, error) {
	existing, err := db.GetUserByUsername(ctx, u.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if _, err := db.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return db.GetUserByUsername(ctx, u.Username)
}
