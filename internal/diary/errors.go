package diary

import "errors"

var (
	// ErrBlankContent is returned when saving a draft without content. Nothing is persisted.
	ErrBlankContent = errors.New("entry content is blank")
	// ErrTooShort is returned when asking for echoes on fewer than MinEchoLength characters.
	ErrTooShort = errors.New("write at least 20 characters to find echoes")
	// ErrNotFound is returned when an entry id is unknown.
	ErrNotFound = errors.New("entry not found")
	// ErrNoProvider is returned when echoes are requested without a provider.
	ErrNoProvider = errors.New("echo analysis unavailable")
)
