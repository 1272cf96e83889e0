// Package notify turns operation outcomes into short messages for people.
package notify

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pbaille/echoes/internal/auth"
	"github.com/pbaille/echoes/internal/backup"
	"github.com/pbaille/echoes/internal/diary"
	"github.com/pbaille/echoes/internal/echoes"
	"github.com/pbaille/echoes/internal/github"
	"github.com/pbaille/echoes/internal/syncer"
)

type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Error   Severity = "error"
)

// Notice is a message shown to the user after an operation
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func Successf(format string, args ...any) Notice {
	return Notice{Severity: Success, Message: fmt.Sprintf(format, args...)}
}

func Infof(format string, args ...any) Notice {
	return Notice{Severity: Info, Message: fmt.Sprintf(format, args...)}
}

// FromSync describes the outcome of a pull or push.
func FromSync(res syncer.Result, err error) Notice {
	if err != nil {
		if errors.Is(err, syncer.ErrNotConfigured) {
			return FromError(err)
		}
		dir := "to"
		if res.Action == syncer.ActionPull {
			dir = "from"
		}
		return Notice{Severity: Error, Message: fmt.Sprintf("Error syncing %s GitHub: %s", dir, FromError(err).Message)}
	}

	switch {
	case res.Action == syncer.ActionBootstrap && res.Status == syncer.StatusNoOp:
		return Infof("No data on GitHub and no local entries to push.")
	case res.Action == syncer.ActionBootstrap:
		return Successf("No data on GitHub. Pushed %d local entries.", res.Pushed)
	case res.Status == syncer.StatusSynced:
		return Successf("Synced %d new entries from GitHub!", res.NewEntries)
	case res.Status == syncer.StatusUpToDate:
		return Successf("Diary is already up to date.")
	case res.Status == syncer.StatusNoOp:
		return Infof("No entries to sync.")
	default:
		return Successf("Successfully synced to GitHub!")
	}
}

// FromError explains err. Known failure kinds get a tailored message and
// severity; anything else is reported verbatim.
func FromError(err error) Notice {
	switch {
	case err == nil:
		return Successf("Done.")
	case errors.Is(err, syncer.ErrNotConfigured):
		return Notice{Severity: Error, Message: "GitHub Sync is not configured."}
	case errors.Is(err, github.ErrConflict):
		return Notice{Severity: Error, Message: "the diary on GitHub changed while syncing; pull, then push again"}
	case errors.Is(err, github.ErrUnauthorized):
		return Notice{Severity: Error, Message: "GitHub rejected the token; check your sync settings"}
	case errors.Is(err, github.ErrCorrupt):
		return Notice{Severity: Error, Message: "the diary file on GitHub is corrupted and could not be read"}
	case errors.Is(err, github.ErrTransport):
		return Notice{Severity: Error, Message: "could not reach GitHub; check your connection"}
	case github.IsNotFoundStatus(err):
		return Notice{Severity: Error, Message: "repository not found; check the username and repo in your sync settings"}
	case errors.Is(err, diary.ErrTooShort):
		return Infof("Write at least %d characters to find echoes.", diary.MinEchoLength)
	case errors.Is(err, diary.ErrBlankContent):
		return Infof("Nothing to save: the entry is empty.")
	case errors.Is(err, diary.ErrNotFound):
		return Notice{Severity: Error, Message: "Entry not found."}
	case errors.Is(err, diary.ErrNoProvider), errors.Is(err, echoes.ErrNoAPIKey):
		return Notice{Severity: Error, Message: "Historical echoes are unavailable: no API key configured."}
	case errors.Is(err, backup.ErrNothingToExport):
		return Infof("No entries to export.")
	case errors.Is(err, backup.ErrInvalidType):
		return Notice{Severity: Error, Message: "Please select a valid JSON backup file."}
	case errors.Is(err, backup.ErrMalformed), errors.Is(err, backup.ErrInvalidShape):
		return Notice{Severity: Error, Message: "Failed to import: the file is not a diary backup."}
	case errors.Is(err, auth.ErrEmptyCode):
		return Notice{Severity: Error, Message: "Missing authorization code."}
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return Notice{Severity: Error, Message: apiErr.Message}
	}
	return Notice{Severity: Error, Message: err.Error()}
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Render formats n for a terminal.
func (n Notice) Render() string {
	switch n.Severity {
	case Success:
		return successStyle.Render("✓ " + n.Message)
	case Error:
		return errorStyle.Render("✗ " + n.Message)
	default:
		return infoStyle.Render("• " + n.Message)
	}
}
