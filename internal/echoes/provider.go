// Package echoes finds historical records that resonate with a diary entry.
package echoes

import (
	"context"
	"errors"

	"github.com/pbaille/echoes/internal/domain"
)

// MaxEchoes caps how many echoes one analysis returns.
const MaxEchoes = 6

// ErrNoAPIKey means no language model credentials are configured.
var ErrNoAPIKey = errors.New("anthropic api key not set")

// Provider returns echoes for entryText. An empty result means nothing
// resonated and is not an error.
type Provider interface {
	Echoes(ctx context.Context, entryText, pastThemes string) ([]domain.Echo, error)
}
