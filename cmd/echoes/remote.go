package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbaille/echoes/internal/api"
	"github.com/pbaille/echoes/internal/backup"
	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/notify"
	"github.com/pbaille/echoes/internal/syncer"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the diary with a file in a GitHub repository",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Merge the GitHub copy into the local diary",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return reportSync(cmd, a.syncer.Pull)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Overwrite the GitHub copy with the local diary",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return reportSync(cmd, a.syncer.Push)
		}),
	})
	cmd.AddCommand(syncConfigCmd())
	return cmd
}

func reportSync(cmd *cobra.Command, run func(context.Context) (syncer.Result, error)) error {
	res, err := run(cmd.Context())
	n := notify.FromSync(res, err)
	if err != nil {
		return errors.New(n.Message)
	}
	printNotice(cmd, n)
	return nil
}

func syncConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage GitHub sync settings",
	}

	var cfg domain.SyncConfig
	set := &cobra.Command{
		Use:   "set",
		Short: "Save sync settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			current, err := a.configs.SyncConfig(ctx)
			if err != nil {
				return err
			}
			next := current
			if cmd.Flags().Changed("username") {
				next.Username = cfg.Username
			}
			if cmd.Flags().Changed("repo") {
				next.Repo = cfg.Repo
			}
			if cmd.Flags().Changed("path") {
				next.FilePath = cfg.FilePath
			}
			if cmd.Flags().Changed("token") {
				next.Token = cfg.Token
			} else if token := os.Getenv("GITHUB_TOKEN"); token != "" && next.Token == "" {
				next.Token = token
			}

			if err := a.configs.Save(ctx, next); err != nil {
				if errors.Is(err, syncer.ErrNotConfigured) {
					return fmt.Errorf("please fill in all fields (%v)", err)
				}
				return err
			}
			a.log.Info(ctx, "sync settings saved", "config", next)
			printNotice(cmd, notify.Successf("Settings saved successfully!"))
			return nil
		}),
	}
	set.Flags().StringVarP(&cfg.Username, "username", "u", "", "GitHub user or organization owning the repository")
	set.Flags().StringVarP(&cfg.Repo, "repo", "r", "", "repository name")
	set.Flags().StringVarP(&cfg.FilePath, "path", "p", "", "path of the diary file in the repository")
	set.Flags().StringVar(&cfg.Token, "token", "", "personal access token with contents access (default $GITHUB_TOKEN)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show sync settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			cfg, err := a.configs.SyncConfig(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username: %s\n", cfg.Username)
			fmt.Fprintf(out, "Repo:     %s\n", cfg.Repo)
			fmt.Fprintf(out, "Path:     %s\n", cfg.FilePath)
			token := "not set"
			if cfg.Token != "" {
				token = "set"
			}
			fmt.Fprintf(out, "Token:    %s\n", token)
			if err := syncer.Validate(cfg); err != nil {
				printNotice(cmd, notify.Infof("%v", err))
			}
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget sync settings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.configs.Clear(cmd.Context()); err != nil {
				return err
			}
			printNotice(cmd, notify.Infof("Sync settings cleared."))
			return nil
		}),
	}

	cmd.AddCommand(set, show, clearCmd)
	return cmd
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all entries to a JSON backup file",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			entries := a.diary.Entries()
			if output == "-" {
				return backup.Export(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				return backup.ErrNothingToExport
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
			if err := backup.Export(f, entries); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			printNotice(cmd, notify.Successf("Exported %d entries to %s", len(entries), output))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", backup.DefaultFileName, "backup file, - for stdout")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Merge a JSON backup into the diary",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var (
				r           io.Reader = cmd.InOrStdin()
				contentType           = "application/json"
			)
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open backup: %w", err)
				}
				defer f.Close()
				r, contentType = f, backup.TypeForFile(args[0])
			}

			added, err := a.backup.Restore(cmd.Context(), contentType, r)
			if err != nil {
				return err
			}
			printNotice(cmd, notify.Successf("Imported %d new entries.", added))
			return nil
		}),
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [code]",
		Short: "Finish GitHub sign-in with the authorization code from the browser",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if a.cfg.Auth.BaseURL == "" {
				return errors.New("auth.base_url is not configured")
			}
			user, err := a.session.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printNotice(cmd, notify.Successf("Signed in as %s", user.Name))
			return nil
		}),
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			printNotice(cmd, notify.Infof("Signed out."))
			return nil
		}),
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in GitHub user",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			user, ok, err := a.session.Current(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				printNotice(cmd, notify.Infof("Not signed in."))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (since %s)\n", user.Name, user.LoggedInAt.Local().Format("2006-01-02 15:04"))
			return nil
		}),
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			server := api.New(api.Deps{
				Diary:          a.diary,
				Echoes:         a.echoes,
				Syncer:         a.syncer,
				SyncConfig:     a.configs,
				Backup:         a.backup,
				Session:        a.session,
				Log:            a.log,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
			})
			return server.Run(cmd.Context(), a.cfg.Server.Addr)
		}),
	}

	cmd.Flags().StringP("addr", "a", "", "server address (default :8080)")
	return cmd
}
