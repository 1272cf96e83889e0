package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/echoes/internal/diary"
	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/fetcher"
	"github.com/pbaille/echoes/internal/notify"
)

func addCmd() *cobra.Command {
	var (
		title     string
		date      string
		fromURL   string
		useEchoes bool
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Write a new diary entry",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			content := strings.Join(args, " ")

			if fromURL != "" {
				page, err := fetcher.New(nil).Fetch(ctx, fromURL)
				if err != nil {
					return fmt.Errorf("clip %s: %w", fromURL, err)
				}
				content = strings.TrimSpace(content + "\n\n" + page.Text + "\n\n" + page.URL)
				if title == "" {
					title = page.Title
				}
			}
			if strings.TrimSpace(content) == "" {
				return diary.ErrBlankContent
			}

			ed := diary.NewEditor(a.diary, a.echoes)
			ed.SetTitle(title)
			ed.SetContent(content)
			if err := applyDate(ed, date); err != nil {
				return err
			}
			if useEchoes {
				findEchoes(cmd, ed)
			}

			entry, _, err := ed.Save(ctx)
			if err != nil {
				return err
			}
			printNotice(cmd, notify.Successf("New entry saved! (%d)", entry.ID))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "entry title")
	cmd.Flags().StringVarP(&date, "date", "d", "", "entry date: YYYY-MM-DD or e.g. \"yesterday\" (default today)")
	cmd.Flags().StringVar(&fromURL, "from-url", "", "seed the entry with the text of a web page")
	cmd.Flags().BoolVarP(&useEchoes, "echoes", "e", false, "look for historical echoes before saving")
	return cmd
}

func editCmd() *cobra.Command {
	var (
		title     string
		content   string
		date      string
		useEchoes bool
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change an existing entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ed := diary.NewEditor(a.diary, a.echoes)
			if err := ed.Load(id); err != nil {
				return err
			}
			if cmd.Flags().Changed("title") {
				ed.SetTitle(title)
			}
			if cmd.Flags().Changed("content") {
				ed.SetContent(content)
			}
			if err := applyDate(ed, date); err != nil {
				return err
			}
			if useEchoes {
				findEchoes(cmd, ed)
			}

			if _, _, err := ed.Save(cmd.Context()); err != nil {
				return err
			}
			printNotice(cmd, notify.Successf("Entry updated successfully!"))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new content")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date")
	cmd.Flags().BoolVarP(&useEchoes, "echoes", "e", false, "look for historical echoes again")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			entries := a.diary.Entries()
			out := cmd.OutOrStdout()

			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries yet. Use 'echoes add' to write one.")
				return nil
			}

			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%d  %s  %s  (%d echoes)\n", e.ID, e.Date, truncate(e.Title, 40), len(e.Echoes))
			}
			return nil
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show an entry and its echoes",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entry, ok := a.diary.Find(id)
			if !ok {
				return fmt.Errorf("entry %d: %w", id, diary.ErrNotFound)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %d\n", entry.ID)
			fmt.Fprintf(out, "Title:   %s\n", entry.Title)
			fmt.Fprintf(out, "Date:    %s\n", entry.Date)
			fmt.Fprintf(out, "Saved:   %s\n", entry.SavedAt.Local().Format("2006-01-02 15:04:05"))
			if entry.IsRightToLeft {
				fmt.Fprintf(out, "Script:  right-to-left\n")
			}
			fmt.Fprintf(out, "Content:\n%s\n", entry.Content)

			if len(entry.Echoes) > 0 {
				fmt.Fprintf(out, "\nEchoes:\n")
				printEchoes(out, entry.Echoes)
			}
			return nil
		}),
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !a.diary.Exists(id) {
				return fmt.Errorf("entry %d: %w", id, diary.ErrNotFound)
			}
			if err := a.diary.Delete(cmd.Context(), id); err != nil {
				return err
			}
			printNotice(cmd, notify.Successf("Entry deleted."))
			return nil
		}),
	}
}

func echoesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "echoes [text]",
		Short: "Preview historical echoes for some text without saving it",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ed := diary.NewEditor(a.diary, a.echoes)
			ed.SetContent(strings.Join(args, " "))

			found, err := ed.FindEchoes(cmd.Context())
			if err != nil {
				return err
			}
			if len(found) == 0 {
				printNotice(cmd, notify.Infof("No specific echoes found."))
				return nil
			}
			printEchoes(cmd.OutOrStdout(), found)
			return nil
		}),
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the diary",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			stats := diary.Summarize(a.diary.Entries())
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Entries: %d\n", stats.TotalEntries)
			fmt.Fprintf(out, "Echoes:  %d\n", stats.TotalEchoes)
			if len(stats.TopThemes) > 0 {
				fmt.Fprintf(out, "\nRecurring themes:\n")
				for _, t := range stats.TopThemes {
					fmt.Fprintf(out, "  %-32s %d\n", t.Theme, t.Count)
				}
			}
			return nil
		}),
	}
}

func applyDate(ed *diary.Editor, input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	date, err := diary.ParseDate(input, time.Now())
	if err != nil {
		return err
	}
	ed.SetDate(date)
	return nil
}

// findEchoes attaches echoes to the draft. Failures are reported but never
// stop the entry from being saved.
func findEchoes(cmd *cobra.Command, ed *diary.Editor) {
	found, err := ed.FindEchoes(cmd.Context())
	switch {
	case err != nil && !errors.Is(err, diary.ErrTooShort) && !errors.Is(err, diary.ErrNoProvider):
		printNotice(cmd, notify.Notice{Severity: notify.Error, Message: "Failed to fetch historical echoes. Please try again."})
	case err != nil:
		printNotice(cmd, notify.FromError(err))
	case len(found) == 0:
		printNotice(cmd, notify.Infof("No specific echoes found."))
	default:
		printNotice(cmd, notify.Successf("Discovered %d new historical echoes!", len(found)))
		printEchoes(cmd.OutOrStdout(), found)
	}
}

func printEchoes(out io.Writer, list []domain.Echo) {
	for _, e := range list {
		fmt.Fprintf(out, "  %s %s (%s, %s)\n", e.Icon, e.Author, e.Era, e.Location)
		fmt.Fprintf(out, "    %q\n", truncate(e.Text, 200))
		if e.Theme != "" {
			fmt.Fprintf(out, "    theme: %s\n", e.Theme)
		}
		if e.Connection != "" {
			fmt.Fprintf(out, "    %s\n", e.Connection)
		}
	}
}
