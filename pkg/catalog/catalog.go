// Package catalog resolves identifier fragments found in trap lines to
// managed object ids, backed by the IdentificadorObjeto table.
package catalog

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v2"
	"github.com/rs/zerolog"

	trferrors "github.com/charlymoron/trapflow/pkg/errors"
)

// Store is the read dependency on the identifier catalogue.
type Store interface {
	// IdentifiersOfKind returns every ValorIdentificador whose
	// TipoIdentificadorId equals kindID.
	IdentifiersOfKind(ctx context.Context, kindID int64) ([]string, error)

	// FindObjectID returns the ObjetoId of the first identifier record
	// whose value contains fragment, if any.
	FindObjectID(ctx context.Context, fragment string) (int64, bool, error)

	// Close releases the underlying connection.
	Close() error
}

// Index is the in-memory identifier index for one pipeline run. Load
// once, then resolve from any number of workers: the IP list is
// read-only after Load and the memoization cache is a concurrent map.
type Index struct {
	store  Store
	log    zerolog.Logger
	ips    []string
	cache  *xsync.MapOf[string, int64]
	loaded bool
}

// NewIndex creates an index over the given store.
func NewIndex(store Store, log zerolog.Logger) *Index {
	return &Index{
		store: store,
		log:   log,
		cache: xsync.NewMapOf[int64](),
	}
}

// Load materializes the IP-kind identifier list. A failure here is
// fatal to the run: resolution against a partial catalogue would
// silently misattribute events.
func (ix *Index) Load(ctx context.Context, kindID int64) error {
	ips, err := ix.store.IdentifiersOfKind(ctx, kindID)
	if err != nil {
		return trferrors.Wrap(err, trferrors.CodeCatalogUnavailable,
			"failed to load identifier catalogue").
			WithContext("identifier_kind_id", kindID)
	}

	ix.ips = ips
	ix.loaded = true
	ix.log.Info().Int("ip_identifiers", len(ips)).Msg("identifier catalogue loaded")
	return nil
}

// KnownIPCount returns the number of loaded IP identifiers.
func (ix *Index) KnownIPCount() int {
	return len(ix.ips)
}

// Resolve maps a fragment to an object id via the memoized
// contains-match lookup. First match wins; ambiguity is tolerated by
// contract (historical data quality). Query failures resolve to not
// found so a flaky catalogue degrades to per-line errors rather than
// killing the batch.
func (ix *Index) Resolve(ctx context.Context, fragment string) (int64, bool) {
	if fragment == "" {
		return 0, false
	}

	if id, ok := ix.cache.Load(fragment); ok {
		return id, true
	}

	id, found, err := ix.store.FindObjectID(ctx, fragment)
	if err != nil {
		ix.log.Error().Err(err).Str("fragment", fragment).Msg("identifier lookup failed")
		return 0, false
	}
	if !found {
		return 0, false
	}

	ix.cache.Store(fragment, id)
	return id, true
}

// ResolveByKnownIP scans the line for any loaded IP identifier and
// resolves through the first one found. This is the fallback path for
// tunnel lines whose marker text is not in the catalogue.
func (ix *Index) ResolveByKnownIP(ctx context.Context, line string) (int64, bool) {
	for _, ip := range ix.ips {
		if ip == "" {
			continue
		}
		if strings.Contains(line, ip) {
			if id, ok := ix.Resolve(ctx, strings.TrimSpace(ip)); ok {
				return id, true
			}
		}
	}
	return 0, false
}
