package storage

import (
	"context"
	"fmt"
	"strings"

	logx "recobot/pkg/logx"
)

// Store is the persistence API used by the registries and the command layer.
type Store interface {
	// Load returns ErrNotFound when the document was never saved.
	Load(ctx context.Context, name string) ([]byte, error)
	// Save replaces the document. Readers never observe a partial write.
	Save(ctx context.Context, name string, data []byte) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Locator is implemented by stores whose documents live in plain files, so
// they can be watched for external edits.
type Locator interface {
	Path(name string) string
}

func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		st, err := openFile(cfg, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite", "sqlite3":
		st, err := openSQLite(context.Background(), cfg, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
