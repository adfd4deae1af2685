package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yiteng-CHEN/snaplearn/internal/grading"
	appI18n "github.com/Yiteng-CHEN/snaplearn/internal/i18n"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-grade every pending homework result once and exit",
		RunE:  runReconcile,
	}
	f := cmd.Flags()
	f.String("db", "snaplearn.db", "SQLite database path")
	f.StringP("lang", "l", "zh", "Language of comments and explanations (zh, en)")
	addAIFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a homework with all student results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "snaplearn.db", "SQLite database path")
	f.Int64("homework-id", 0, "Homework to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("homework-id")

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE:  runUserAdd,
	}
	f := add.Flags()
	f.String("db", "snaplearn.db", "SQLite database path")
	f.String("username", "", "Login name (required)")
	f.String("display-name", "", "Display name (defaults to the username)")
	f.String("role", string(model.UserRoleStudent), "Role (student, teacher, admin)")
	f.Bool("verified-teacher", false, "Allow the user to author homework and correct scores")
	addLogFlags(add)
	_ = add.MarkFlagRequired("username")

	cmd.AddCommand(add)
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	v := setup(cmd)
	ctx := context.Background()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	backend, err := newBackend(ctx, v)
	if err != nil {
		return err
	}
	report, err := grading.New(db, backend, grading.Config{}).ReconcilePending(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	slog.Info("reconciliation finished",
		"processed", report.Processed,
		"graded", report.Graded,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := setup(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id := v.GetInt64("homework-id")
	export, err := db.ExportHomework(context.Background(), id)
	if err != nil {
		return fmt.Errorf("export homework: %w", err)
	}
	if export == nil {
		return fmt.Errorf("homework %d not found", id)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	v := setup(cmd)

	role := model.UserRole(v.GetString("role"))
	switch role {
	case model.UserRoleStudent, model.UserRoleTeacher, model.UserRoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", role)
	}
	username := v.GetString("username")
	displayName := v.GetString("display-name")
	if displayName == "" {
		displayName = username
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id, err := db.CreateUser(context.Background(), model.User{
		Username:        username,
		DisplayName:     displayName,
		Role:            role,
		VerifiedTeacher: v.GetBool("verified-teacher"),
		Active:          true,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
