package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pbaille/echoes/internal/auth"
	"github.com/pbaille/echoes/internal/backup"
	"github.com/pbaille/echoes/internal/config"
	"github.com/pbaille/echoes/internal/diary"
	"github.com/pbaille/echoes/internal/echoes"
	"github.com/pbaille/echoes/internal/github"
	"github.com/pbaille/echoes/internal/logging"
	"github.com/pbaille/echoes/internal/notify"
	"github.com/pbaille/echoes/internal/store"
	"github.com/pbaille/echoes/internal/syncer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, notify.FromError(err).Render())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "echoes",
		Short:         "A diary that finds echoes of your days in history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.echoes/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (default ~/.echoes/echoes.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotating file instead of stderr")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(echoesCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}

// app wires the services one command needs.
type app struct {
	cfg *config.Config
	log logging.Logger

	kv      *store.SQLite
	diary   *diary.Repository
	echoes  diary.EchoProvider
	syncer  *syncer.Syncer
	configs *syncer.ConfigStore
	backup  *backup.Service
	session *auth.Session

	closers []io.Closer
}

func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, closers: []io.Closer{logCloser}}
	logger.Debug(ctx, "loaded config", "config", cfg)

	a.kv, err = store.New(cfg.DB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.kv)

	a.diary, err = diary.Open(ctx, a.kv)
	if err != nil {
		a.Close()
		return nil, err
	}

	hc := &http.Client{Timeout: cfg.HTTP.Timeout}

	provider, err := echoes.New(echoes.Config{
		APIKey:     cfg.Anthropic.APIKey,
		Model:      cfg.Anthropic.Model,
		HTTPClient: hc,
	}, logger)
	switch {
	case err == nil:
		a.echoes = provider
	case errors.Is(err, echoes.ErrNoAPIKey):
		logger.Debug(ctx, "echo analysis disabled", "reason", err)
	default:
		a.Close()
		return nil, err
	}

	remote := github.New(cfg.GitHub.APIURL, github.WithHTTPClient(hc), github.WithLogger(logger))
	a.configs = syncer.NewConfigStore(a.kv)
	a.syncer = syncer.New(remote, a.diary, a.configs, logger)
	a.backup = backup.NewService(a.diary)
	a.session = auth.NewSession(a.kv, auth.NewHTTPExchanger(cfg.Auth.BaseURL, hc), logger)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// withApp opens the app around run.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func printNotice(cmd *cobra.Command, n notify.Notice) {
	fmt.Fprintln(cmd.OutOrStdout(), n.Render())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
