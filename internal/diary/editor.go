package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/echoes/internal/domain"
)

// MinEchoLength is the shortest trimmed content sent for analysis.
const MinEchoLength = 20

// EchoProvider finds historical echoes for a piece of diary text.
type EchoProvider interface {
	Echoes(ctx context.Context, entryText, pastThemes string) ([]domain.Echo, error)
}

// Editor stages a draft in memory until it is saved into the Repository.
// An Editor belongs to one editing session and is not safe for concurrent use.
type Editor struct {
	repo     *Repository
	provider EchoProvider
	now      func() time.Time

	currentID int64
	draft     domain.Draft
	analyzed  bool
}

// NewEditor starts a session on a blank draft dated today. provider may be
// nil, in which case FindEchoes returns ErrNoProvider.
func NewEditor(repo *Repository, provider EchoProvider) *Editor {
	e := &Editor{repo: repo, provider: provider, now: repo.now}
	e.New()
	return e
}

// New discards the draft and starts a blank one dated today.
func (e *Editor) New() {
	e.currentID = 0
	e.draft = domain.Draft{Date: Today(e.now())}
	e.analyzed = false
}

// Load copies a stored entry into the draft.
func (e *Editor) Load(id int64) error {
	entry, ok := e.repo.Find(id)
	if !ok {
		return fmt.Errorf("load entry %d: %w", id, ErrNotFound)
	}
	e.currentID = entry.ID
	e.draft = domain.Draft{
		Title:   entry.Title,
		Content: entry.Content,
		Date:    entry.Date,
		Echoes:  entry.Echoes,
	}
	e.analyzed = len(entry.Echoes) > 0
	return nil
}

func (e *Editor) SetTitle(title string) { e.draft.Title = title }

func (e *Editor) SetDate(date string) { e.draft.Date = date }

// SetContent replaces the body. Changed content invalidates earlier echoes.
func (e *Editor) SetContent(content string) {
	if content == e.draft.Content {
		return
	}
	e.draft.Content = content
	e.draft.Echoes = nil
	e.analyzed = false
}

func (e *Editor) Draft() domain.Draft { return e.draft }

// CurrentID returns the id of the stored entry being edited, if any.
func (e *Editor) CurrentID() (int64, bool) {
	return e.currentID, e.currentID != 0
}

func (e *Editor) Analyzed() bool { return e.analyzed }

func (e *Editor) IsRightToLeft() bool {
	return IsRightToLeft(e.draft.Title, e.draft.Content)
}

// IsSaved reports whether the draft matches its stored entry.
func (e *Editor) IsSaved() bool {
	if e.currentID == 0 {
		return false
	}
	stored, ok := e.repo.Find(e.currentID)
	if !ok {
		return false
	}
	return stored.Content == e.draft.Content &&
		stored.Title == e.draft.Title &&
		stored.Date == e.draft.Date &&
		len(stored.Echoes) == len(e.draft.Echoes)
}

// FindEchoes asks the provider for echoes of the draft content and attaches
// them to the draft. Nothing is persisted until Save.
func (e *Editor) FindEchoes(ctx context.Context) ([]domain.Echo, error) {
	if len([]rune(strings.TrimSpace(e.draft.Content))) < MinEchoLength {
		return nil, ErrTooShort
	}
	if e.provider == nil {
		return nil, ErrNoProvider
	}

	echoes, err := e.provider.Echoes(ctx, e.draft.Content, PastThemes(e.repo.Entries()))
	if err != nil {
		e.analyzed = false
		return nil, fmt.Errorf("find echoes: %w", err)
	}
	if echoes == nil {
		echoes = []domain.Echo{}
	}
	e.draft.Echoes = echoes
	e.analyzed = true
	return echoes, nil
}

// Save commits the draft. It updates the entry being edited when it still
// exists and creates a new one otherwise.
func (e *Editor) Save(ctx context.Context) (entry domain.Entry, created bool, err error) {
	if strings.TrimSpace(e.draft.Content) == "" {
		return domain.Entry{}, false, ErrBlankContent
	}

	if e.currentID != 0 {
		entry, found, err := e.repo.Update(ctx, e.currentID, e.draft)
		if err != nil {
			return domain.Entry{}, false, err
		}
		if found {
			return entry, false, nil
		}
	}

	entry, err = e.repo.Create(ctx, e.draft)
	if err != nil {
		return domain.Entry{}, false, err
	}
	e.currentID = entry.ID
	return entry, true, nil
}

// Delete removes an entry and resets the draft if it was being edited.
func (e *Editor) Delete(ctx context.Context, id int64) error {
	if err := e.repo.Delete(ctx, id); err != nil {
		return err
	}
	if id == e.currentID {
		e.New()
	}
	return nil
}
