package syncer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/echoes/internal/diary"
	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/github"
	"github.com/pbaille/echoes/internal/store"
)

var (
	t1 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
)

var validConfig = domain.SyncConfig{Username: "ada", Repo: "journal", FilePath: "diary.json", Token: "tok"}

type fakeRemote struct {
	snap     *domain.RemoteSnapshot
	fetchErr error
	writeErr error

	fetches int
	writes  [][]domain.Entry
}

func (f *fakeRemote) Fetch(context.Context, domain.SyncConfig) (*domain.RemoteSnapshot, error) {
	f.fetches++
	return f.snap, f.fetchErr
}

func (f *fakeRemote) Write(_ context.Context, _ domain.SyncConfig, entries []domain.Entry) error {
	f.writes = append(f.writes, entries)
	return f.writeErr
}

type staticConfig domain.SyncConfig

func (s staticConfig) SyncConfig(context.Context) (domain.SyncConfig, error) {
	return domain.SyncConfig(s), nil
}

func entry(id int64, savedAt time.Time) domain.Entry {
	return domain.Entry{ID: id, Title: "t", Content: "c", Date: "2024-01-01", SavedAt: savedAt, Echoes: []domain.Echo{}}
}

func newLocal(t *testing.T, entries ...domain.Entry) *diary.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := diary.Open(ctx, store.NewMemory())
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceAll(ctx, entries))
	return repo
}

func ids(entries []domain.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestPull_MergesNewRemoteEntries(t *testing.T) {
	local := newLocal(t, entry(1, t1))
	remote := &fakeRemote{snap: &domain.RemoteSnapshot{
		Entries: []domain.Entry{entry(1, t1), entry(2, t2)},
		SHA:     "abc",
	}}
	s := New(remote, local, staticConfig(validConfig), nil)

	res, err := s.Pull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Action: ActionPull, Status: StatusSynced, NewEntries: 1}, res)
	assert.Equal(t, []int64{2, 1}, ids(local.Entries()))
	assert.Empty(t, remote.writes)
}

func TestPull_LocalVersionWinsOnCollision(t *testing.T) {
	mine := entry(1, t1)
	mine.Title = "local edit"
	theirs := entry(1, t1)
	theirs.Title = "remote"
	local := newLocal(t, mine)
	s := New(&fakeRemote{snap: &domain.RemoteSnapshot{Entries: []domain.Entry{theirs}}}, local, staticConfig(validConfig), nil)

	res, err := s.Pull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusUpToDate, res.Status)
	assert.Zero(t, res.NewEntries)
	if diff := cmp.Diff([]domain.Entry{mine}, local.Entries()); diff != "" {
		t.Errorf("local entries changed (-want +got):\n%s", diff)
	}
}

func TestPull_MissingRemoteBootstrapsWithPush(t *testing.T) {
	localEntries := []domain.Entry{entry(2, t2), entry(1, t1)}
	local := newLocal(t, localEntries...)
	remote := &fakeRemote{}
	s := New(remote, local, staticConfig(validConfig), nil)

	res, err := s.Pull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Action: ActionBootstrap, Status: StatusPushed, Pushed: 2}, res)
	require.Len(t, remote.writes, 1)
	assert.Equal(t, localEntries, remote.writes[0])
	assert.Equal(t, localEntries, local.Entries())
}

func TestPull_MissingRemoteWithEmptyLocalIsNoOp(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, newLocal(t), staticConfig(validConfig), nil)

	res, err := s.Pull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionBootstrap, res.Action)
	assert.Equal(t, StatusNoOp, res.Status)
	assert.Empty(t, remote.writes)
}

func TestPull_FetchFailureLeavesLocalUntouched(t *testing.T) {
	for name, fetchErr := range map[string]error{
		"corrupt":   github.ErrCorrupt,
		"transport": github.ErrTransport,
		"api":       &github.APIError{Op: "fetch", StatusCode: 500, Message: "boom"},
	} {
		t.Run(name, func(t *testing.T) {
			before := []domain.Entry{entry(1, t1)}
			local := newLocal(t, before...)
			remote := &fakeRemote{fetchErr: fetchErr}
			s := New(remote, local, staticConfig(validConfig), nil)

			_, err := s.Pull(context.Background())

			require.ErrorIs(t, err, fetchErr)
			assert.Equal(t, before, local.Entries())
			assert.Empty(t, remote.writes)
		})
	}
}

// contentsServer serves body as the remote diary file.
func contentsServer(t *testing.T, body string) *github.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sha":     "abc",
			"content": base64.StdEncoding.EncodeToString([]byte(body)),
		})
	}))
	t.Cleanup(srv.Close)
	return github.New(srv.URL)
}

func TestPull_RemoteWithoutEntriesIsCorrupt(t *testing.T) {
	for name, body := range map[string]string{
		"unknown fields": `[{"foo":1}]`,
		"null":           `null`,
		"blank content":  `[{"id":5,"title":"t","content":"","date":"2024-01-01"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			before := []domain.Entry{entry(1, t1)}
			local := newLocal(t, before...)
			s := New(contentsServer(t, body), local, staticConfig(validConfig), nil)

			res, err := s.Pull(context.Background())

			require.ErrorIs(t, err, github.ErrCorrupt)
			assert.Equal(t, ActionPull, res.Action)
			assert.Zero(t, res.NewEntries)
			assert.Equal(t, before, local.Entries())
		})
	}
}

func TestPush_EmptyLocalSkipsNetwork(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, newLocal(t), staticConfig(validConfig), nil)

	res, err := s.Push(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Action: ActionPush, Status: StatusNoOp}, res)
	assert.Zero(t, remote.fetches)
	assert.Empty(t, remote.writes)
}

func TestPush_WritesWholeCollection(t *testing.T) {
	local := newLocal(t, entry(2, t2), entry(1, t1))
	remote := &fakeRemote{}
	s := New(remote, local, staticConfig(validConfig), nil)

	res, err := s.Push(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusPushed, res.Status)
	assert.Equal(t, 2, res.Pushed)
	require.Len(t, remote.writes, 1)
	assert.Equal(t, []int64{2, 1}, ids(remote.writes[0]))
}

func TestPush_ConflictLeavesLocalUnchanged(t *testing.T) {
	before := []domain.Entry{entry(1, t1)}
	local := newLocal(t, before...)
	conflict := &github.APIError{Op: "write", StatusCode: 409, Message: "sha mismatch"}
	s := New(&fakeRemote{writeErr: conflict}, local, staticConfig(validConfig), nil)

	_, err := s.Push(context.Background())

	require.ErrorIs(t, err, github.ErrConflict)
	assert.Equal(t, before, local.Entries())
}

func TestSync_RequiresConfig(t *testing.T) {
	incomplete := validConfig
	incomplete.Token = ""
	remote := &fakeRemote{}
	s := New(remote, newLocal(t, entry(1, t1)), staticConfig(incomplete), nil)

	_, err := s.Pull(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.Push(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)

	assert.Zero(t, remote.fetches)
	assert.Empty(t, remote.writes)
}

type brokenConfig struct{}

func (brokenConfig) SyncConfig(context.Context) (domain.SyncConfig, error) {
	return domain.SyncConfig{}, errors.New("db locked")
}

func TestSync_ConfigLoadFailure(t *testing.T) {
	s := New(&fakeRemote{}, newLocal(t), brokenConfig{}, nil)

	_, err := s.Pull(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
}
