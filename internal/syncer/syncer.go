// Package syncer reconciles the local diary with the copy kept on GitHub.
package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/logging"
)

// ErrNotConfigured means one of username, repo, file path or token is missing.
var ErrNotConfigured = errors.New("github sync is not configured")

// RemoteStore reads and writes the remote diary file.
type RemoteStore interface {
	// Fetch returns nil without error when the file does not exist yet.
	Fetch(ctx context.Context, cfg domain.SyncConfig) (*domain.RemoteSnapshot, error)
	Write(ctx context.Context, cfg domain.SyncConfig, entries []domain.Entry) error
}

// Collection is the local canonical entry collection. Merge must read and
// replace the collection atomically so edits made during a pull survive.
type Collection interface {
	Entries() []domain.Entry
	Merge(ctx context.Context, incoming []domain.Entry) (added int, err error)
}

// ConfigSource supplies the current sync settings.
type ConfigSource interface {
	SyncConfig(ctx context.Context) (domain.SyncConfig, error)
}

type Action string

const (
	ActionPull Action = "pull"
	ActionPush Action = "push"
	// ActionBootstrap is a pull that found no remote file and pushed instead.
	ActionBootstrap Action = "bootstrap"
)

type Status string

const (
	StatusSynced   Status = "synced"
	StatusUpToDate Status = "up_to_date"
	StatusPushed   Status = "pushed"
	StatusNoOp     Status = "no_op"
)

// Result describes a completed sync.
type Result struct {
	Action     Action `json:"action"`
	Status     Status `json:"status"`
	NewEntries int    `json:"newEntries"`
	Pushed     int    `json:"pushed"`
}

// Syncer runs pulls and pushes. It holds no state between calls; callers
// must not run two syncs against the same remote file at once.
type Syncer struct {
	remote RemoteStore
	local  Collection
	config ConfigSource
	log    logging.Logger
}

func New(remote RemoteStore, local Collection, config ConfigSource, log logging.Logger) *Syncer {
	if log == nil {
		log = logging.Discard()
	}
	return &Syncer{remote: remote, local: local, config: config, log: log}
}

// Pull merges the remote file into the local collection, local entries
// winning on id collisions. When the remote file does not exist the local
// collection is pushed to create it.
func (s *Syncer) Pull(ctx context.Context) (Result, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return Result{Action: ActionPull}, err
	}

	snap, err := s.remote.Fetch(ctx, cfg)
	if err != nil {
		return Result{Action: ActionPull}, fmt.Errorf("pull: %w", err)
	}
	if snap == nil {
		s.log.Info(ctx, "remote diary missing, pushing local entries", "config", cfg)
		res, err := s.push(ctx, cfg)
		res.Action = ActionBootstrap
		return res, err
	}

	added, err := s.local.Merge(ctx, snap.Entries)
	if err != nil {
		return Result{Action: ActionPull}, fmt.Errorf("pull: %w", err)
	}

	res := Result{Action: ActionPull, Status: StatusUpToDate, NewEntries: added}
	if added > 0 {
		res.Status = StatusSynced
	}
	s.log.Info(ctx, "pulled remote diary", "new_entries", added, "remote_entries", len(snap.Entries))
	return res, nil
}

// Push overwrites the remote file with the whole local collection.
func (s *Syncer) Push(ctx context.Context) (Result, error) {
	cfg, err := s.loadConfig(ctx)
	if err != nil {
		return Result{Action: ActionPush}, err
	}
	return s.push(ctx, cfg)
}

func (s *Syncer) push(ctx context.Context, cfg domain.SyncConfig) (Result, error) {
	entries := s.local.Entries()
	if len(entries) == 0 {
		return Result{Action: ActionPush, Status: StatusNoOp}, nil
	}

	if err := s.remote.Write(ctx, cfg, entries); err != nil {
		return Result{Action: ActionPush}, fmt.Errorf("push: %w", err)
	}

	s.log.Info(ctx, "pushed local diary", "entries", len(entries))
	return Result{Action: ActionPush, Status: StatusPushed, Pushed: len(entries)}, nil
}

func (s *Syncer) loadConfig(ctx context.Context) (domain.SyncConfig, error) {
	cfg, err := s.config.SyncConfig(ctx)
	if err != nil {
		return domain.SyncConfig{}, fmt.Errorf("load sync config: %w", err)
	}
	if !IsConfigured(cfg) {
		return domain.SyncConfig{}, ErrNotConfigured
	}
	return cfg, nil
}
