package registry

import (
	"context"
	"errors"
	"fmt"

	"recobot/internal/docfmt"
	"recobot/internal/storage"
	logx "recobot/pkg/logx"
)

// document is the load/persist plumbing shared by the registries. It remembers
// the fingerprint of the last bytes read or written so a reload of unchanged
// content is a no-op.
type document struct {
	name   string
	store  storage.Store
	format string
	log    logx.Logger

	lastHash uint64
	// broken holds the decode error of the stored bytes. Writes are refused
	// while it is set so hand edits are never replaced by the in-memory state.
	broken error
}

// read returns the raw bytes and whether they differ from what this process
// last saw. Missing documents come back as storage.ErrNotFound.
func (d *document) read(ctx context.Context) ([]byte, bool, error) {
	b, err := d.store.Load(ctx, d.name)
	if isNotFound(err) {
		d.broken = nil
	}
	if err != nil {
		return nil, false, err
	}
	h := docfmt.Hash(b)
	return b, h != d.lastHash, nil
}

func (d *document) decode(b []byte, v any) error {
	if err := docfmt.Decode(b, v, false); err != nil {
		d.broken = fmt.Errorf("%w: %s: %v", ErrMalformedDocument, d.name, err)
		return d.broken
	}
	d.broken = nil
	return nil
}

func (d *document) seen(b []byte) { d.lastHash = docfmt.Hash(b) }

func (d *document) write(ctx context.Context, v any) error {
	if d.broken != nil {
		return fmt.Errorf("%w (not overwriting; fix and reload)", d.broken)
	}
	b, err := docfmt.Encode(d.format, v)
	if err != nil {
		return err
	}
	if err := d.store.Save(ctx, d.name, b); err != nil {
		return fmt.Errorf("save %s: %w", d.name, err)
	}
	d.seen(b)
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, storage.ErrNotFound) }
