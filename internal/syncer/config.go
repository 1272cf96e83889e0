package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/store"
)

var validate = validator.New()

// IsConfigured reports whether every field needed to reach the remote file is set.
func IsConfigured(cfg domain.SyncConfig) bool {
	return validate.Struct(cfg) == nil
}

// Validate explains what is missing from cfg.
func Validate(cfg domain.SyncConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ConfigStore keeps the sync settings in the local store.
type ConfigStore struct {
	kv store.KV
}

func NewConfigStore(kv store.KV) *ConfigStore {
	return &ConfigStore{kv: kv}
}

// SyncConfig returns the stored settings, or a zero value when none are saved.
func (c *ConfigStore) SyncConfig(ctx context.Context) (domain.SyncConfig, error) {
	return store.Load(ctx, c.kv, store.KeySyncConfig, domain.SyncConfig{})
}

// Save trims and validates cfg before storing it.
func (c *ConfigStore) Save(ctx context.Context, cfg domain.SyncConfig) error {
	cfg = domain.SyncConfig{
		Username: strings.TrimSpace(cfg.Username),
		Repo:     strings.TrimSpace(cfg.Repo),
		FilePath: strings.Trim(strings.TrimSpace(cfg.FilePath), "/"),
		Token:    strings.TrimSpace(cfg.Token),
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	return store.Save(ctx, c.kv, store.KeySyncConfig, cfg)
}

func (c *ConfigStore) Clear(ctx context.Context) error {
	if err := c.kv.Delete(ctx, store.KeySyncConfig); err != nil {
		return fmt.Errorf("clear sync config: %w", err)
	}
	return nil
}
