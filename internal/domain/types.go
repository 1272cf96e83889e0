package domain

import (
	"log/slog"
	"time"
)

// Entry is a diary record
type Entry struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Date          string    `json:"date"`
	IsRightToLeft bool      `json:"isRightToLeft"`
	SavedAt       time.Time `json:"savedAt"`
	Echoes        []Echo    `json:"echoes"`
}

// Echo is a historical record that resonates with an entry
type Echo struct {
	ID                 int64    `json:"id"`
	Type               string   `json:"type"`
	Era                string   `json:"era"`
	Author             string   `json:"author"`
	Text               string   `json:"text"`
	Context            string   `json:"context"`
	Location           string   `json:"location"`
	Theme              string   `json:"theme"`
	Icon               string   `json:"icon"`
	Connection         string   `json:"connection,omitempty"`
	TriggeringKeywords []string `json:"triggeringKeywords,omitempty"`
}

// Draft holds the user-editable fields of an entry before it is committed
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Echoes  []Echo `json:"echoes"`
}

// SyncConfig points at the GitHub file used for synchronization
type SyncConfig struct {
	Username string `json:"username" validate:"required"`
	Repo     string `json:"repo" validate:"required"`
	FilePath string `json:"filePath" validate:"required"`
	Token    string `json:"token" validate:"required"`
}

// LogValue keeps the token out of logs.
func (c SyncConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("repo", c.Repo),
		slog.String("file_path", c.FilePath),
		slog.Bool("token_set", c.Token != ""),
	)
}

// RemoteSnapshot is the decoded remote file plus its blob sha
type RemoteSnapshot struct {
	Entries []Entry
	SHA     string
}

// Identity is the GitHub user associated with the local session
type Identity struct {
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarUrl"`
	SessionID  string    `json:"sessionId,omitempty"`
	LoggedInAt time.Time `json:"loggedInAt,omitempty"`
}
