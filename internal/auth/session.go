package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/logging"
	"github.com/pbaille/echoes/internal/store"
)

var ErrEmptyCode = errors.New("authorization code is empty")

// Session persists the identity of the signed-in user.
type Session struct {
	kv        store.KV
	exchanger Exchanger
	log       logging.Logger
	now       func() time.Time
}

func NewSession(kv store.KV, exchanger Exchanger, log logging.Logger) *Session {
	if log == nil {
		log = logging.Discard()
	}
	return &Session{kv: kv, exchanger: exchanger, log: log, now: time.Now}
}

// Login exchanges code and stores the resulting identity.
func (s *Session) Login(ctx context.Context, code string) (domain.Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Identity{}, ErrEmptyCode
	}

	user, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("login: %w", err)
	}
	user.SessionID = uuid.NewString()
	user.LoggedInAt = s.now().UTC()

	if err := store.Save(ctx, s.kv, store.KeyIdentity, user); err != nil {
		return domain.Identity{}, err
	}
	s.log.Info(ctx, "logged in", "user", user.Name, "session_id", user.SessionID)
	return user, nil
}

// Logout clears the local identity. Failing to notify the backend is only
// logged.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.exchanger.Logout(ctx); err != nil {
		s.log.Warn(ctx, "failed to notify backend of logout", "error", err)
	}
	if err := s.kv.Delete(ctx, store.KeyIdentity); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Current returns the stored identity, if any.
func (s *Session) Current(ctx context.Context) (domain.Identity, bool, error) {
	var user domain.Identity
	found, err := s.kv.Get(ctx, store.KeyIdentity, &user)
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("load identity: %w", err)
	}
	return user, found, nil
}
