package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("storage closed")
)

// Well-known document names.
const (
	DocSets          = "recommendations"
	DocSubscriptions = "subscriptions"
	DocWindows       = "time_windows"
)

// Config configures storage.
//
// Driver is "file" (default) or "sqlite". For "file", Path is a directory;
// for "sqlite" it is the database file. Format is the extension for new
// documents of the file driver: json or yaml.
type Config struct {
	Driver      string
	Path        string
	Format      string
	BusyTimeout time.Duration
}

// AuditEntry records one operator command.
type AuditEntry struct {
	At      time.Time `json:"at"`
	ActorID int64     `json:"actor_id"`
	Actor   string    `json:"actor,omitempty"`
	Tenant  string    `json:"tenant"`
	Command string    `json:"command"`
	Target  string    `json:"target,omitempty"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
