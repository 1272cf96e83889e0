// Package diary owns the canonical collection of diary entries and the
// editing workflow around it.
package diary

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/ids"
	"github.com/pbaille/echoes/internal/merge"
	"github.com/pbaille/echoes/internal/store"
)

// Repository is the single writer of the persisted entry collection.
// Every mutation persists the whole collection before returning.
type Repository struct {
	kv  store.KV
	seq *ids.Sequence
	now func() time.Time

	mu      sync.RWMutex
	entries []domain.Entry
}

// Option configures a Repository
type Option func(*Repository)

// WithClock overrides time.Now for savedAt stamps and id generation.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Open loads the persisted collection from kv.
func Open(ctx context.Context, kv store.KV, opts ...Option) (*Repository, error) {
	r := &Repository{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.seq = ids.NewSequence(r.now)

	entries, err := store.Load(ctx, kv, store.KeyEntries, []domain.Entry{})
	if err != nil {
		return nil, fmt.Errorf("open diary: %w", err)
	}
	for _, e := range entries {
		r.seq.Observe(e.ID)
	}
	r.entries = entries
	return r, nil
}

// Entries returns a copy of the collection in its current order.
func (r *Repository) Entries() []domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneEntries(r.entries)
}

// Exists reports whether an entry with id is stored.
func (r *Repository) Exists(id int64) bool {
	_, ok := r.Find(id)
	return ok
}

// Find returns the entry with id.
func (r *Repository) Find(id int64) (domain.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return cloneEntry(r.entries[i]), true
	}
	return domain.Entry{}, false
}

// Create commits a draft as a new entry.
func (r *Repository) Create(ctx context.Context, d domain.Draft) (domain.Entry, error) {
	if strings.TrimSpace(d.Content) == "" {
		return domain.Entry{}, ErrBlankContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.seq.Next()
	for r.indexOf(id) >= 0 {
		id = r.seq.Next()
	}

	e := fromDraft(d)
	e.ID = id
	e.SavedAt = r.now().UTC()

	next := append(cloneEntries(r.entries), e)
	sortByDate(next)

	if err := r.commit(ctx, next); err != nil {
		return domain.Entry{}, err
	}
	return cloneEntry(e), nil
}

// Update replaces every field of entry id except the id itself. It reports
// found=false and changes nothing when id is unknown.
func (r *Repository) Update(ctx context.Context, id int64, d domain.Draft) (domain.Entry, bool, error) {
	if strings.TrimSpace(d.Content) == "" {
		return domain.Entry{}, r.Exists(id), ErrBlankContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.Entry{}, false, nil
	}

	e := fromDraft(d)
	e.ID = id
	e.SavedAt = r.now().UTC()

	next := cloneEntries(r.entries)
	next[i] = e
	sortByDate(next)

	if err := r.commit(ctx, next); err != nil {
		return domain.Entry{}, true, err
	}
	return cloneEntry(e), true, nil
}

// Delete removes entry id. Unknown ids are ignored.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil
	}

	next := make([]domain.Entry, 0, len(r.entries)-1)
	next = append(next, r.entries[:i]...)
	next = append(next, r.entries[i+1:]...)
	return r.commit(ctx, next)
}

// ReplaceAll swaps the whole collection, keeping the given order.
func (r *Repository) ReplaceAll(ctx context.Context, entries []domain.Entry) error {
	next := cloneEntries(entries)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.commit(ctx, next); err != nil {
		return err
	}
	for _, e := range next {
		r.seq.Observe(e.ID)
	}
	return nil
}

// Merge folds incoming into the collection under the write lock, local
// entries winning on id collisions, and returns how many ids were added.
// Nothing is persisted when no id is new.
func (r *Repository) Merge(ctx context.Context, incoming []domain.Entry) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := merge.Entries(r.entries, incoming)
	added := merge.NewIDs(r.entries, merged)
	if added == 0 {
		return 0, nil
	}

	next := cloneEntries(merged)
	if err := r.commit(ctx, next); err != nil {
		return 0, err
	}
	for _, e := range next {
		r.seq.Observe(e.ID)
	}
	return added, nil
}

// commit persists next and only then makes it the in-memory collection.
// Callers hold r.mu.
func (r *Repository) commit(ctx context.Context, next []domain.Entry) error {
	if err := store.Save(ctx, r.kv, store.KeyEntries, next); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}
	r.entries = next
	return nil
}

func (r *Repository) indexOf(id int64) int {
	for i := range r.entries {
		if r.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func fromDraft(d domain.Draft) domain.Entry {
	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = untitled(d.Title, d.Content)
	}
	echoes := append([]domain.Echo{}, d.Echoes...)
	return domain.Entry{
		Title:         title,
		Content:       d.Content,
		Date:          d.Date,
		IsRightToLeft: IsRightToLeft(d.Title, d.Content),
		Echoes:        echoes,
	}
}

// sortByDate orders entries by effective date, latest first.
func sortByDate(entries []domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return dateKey(entries[i]).After(dateKey(entries[j]))
	})
}

func dateKey(e domain.Entry) time.Time {
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

func cloneEntries(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e domain.Entry) domain.Entry {
	if e.Echoes != nil {
		echoes := make([]domain.Echo, len(e.Echoes))
		for i, echo := range e.Echoes {
			echo.TriggeringKeywords = append([]string(nil), echo.TriggeringKeywords...)
			echoes[i] = echo
		}
		e.Echoes = echoes
	}
	return e
}
