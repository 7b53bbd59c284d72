package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pmxbot/pmxbot-sub000/internal/core/port"
)

var ErrUnsupportedScheme = errors.New("unsupported database uri")

// Open returns the log store for uri: "sqlite:<path>", "sqlite::memory:" or "mongodb://...".
func Open(ctx context.Context, uri string) (port.LogStore, error) {
	var (
		store port.LogStore
		err   error
	)

	switch {
	case strings.HasPrefix(uri, "sqlite:"):
		store, err = OpenSQLite(ctx, strings.TrimPrefix(uri, "sqlite:"))
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		store, err = OpenMongo(ctx, uri)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
	if err != nil {
		return nil, err
	}

	return store, nil
}

// struck converts the number of removed rows into the number of lines removed on the caller's behalf. The
// request itself is always the most recent line.
func struck(removed int64) int {
	return max(int(removed)-1, 0)
}
