// Package store implements the base entity client: read operations routed
// through the query engine and write operations guarded by the container
// lock and version-token validation.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/lock"
	"github.com/marldb/marl/pkg/query"
)

// Capability restricts which operations a store accepts.
type Capability int

const (
	// ReadWrite allows the full contract.
	ReadWrite Capability = iota
	// ReadOnly rejects create/update/delete.
	ReadOnly
)

// Store is an entity client bound to one container and one connector.
// Specialized clients are configured stores, not subclasses.
type Store struct {
	container  string
	conn       core.Connector
	locks      *lock.Manager
	capability Capability
	logger     *slog.Logger

	reads  atomic.Uint64
	writes atomic.Uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithCapability sets the capability (default ReadWrite).
func WithCapability(c Capability) Option {
	return func(s *Store) { s.capability = c }
}

// New creates a store for a container over a connector.
func New(container string, conn core.Connector, opts ...Option) *Store {
	s := &Store{
		container: container,
		conn:      conn,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks = lock.NewManager(conn, s.logger)
	return s
}

// Container returns the container name the store is bound to.
func (s *Store) Container() string { return s.container }

// Connector exposes the underlying connector for facades that need the
// optional capability sets (usage metrics, assets).
func (s *Store) Connector() core.Connector { return s.conn }

// Locks exposes the lock manager, mainly for admin tooling (BreakLock).
func (s *Store) Locks() *lock.Manager { return s.locks }

// GetAll fetches the full collection.
func (s *Store) GetAll(ctx context.Context) (core.Collection, error) {
	coll, _, err := s.fetch(ctx)
	return coll, err
}

// FindByName returns the records whose name contains the given name,
// case-insensitively.
func (s *Store) FindByName(ctx context.Context, name string) (core.Collection, error) {
	coll, _, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return query.ByName(coll, name)
}

// FindByX returns the records whose attribute equals the given value.
func (s *Store) FindByX(ctx context.Context, attr string, value any) (core.Collection, error) {
	coll, _, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return query.ByAttr(coll, attr, value)
}

// Search applies AND-combined filters, then sorts and truncates.
func (s *Store) Search(ctx context.Context, f query.Filter, opts query.Options) (core.Collection, error) {
	coll, _, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(coll, f, opts), nil
}

// Create appends a record. The record must carry a name.
func (s *Store) Create(ctx context.Context, rec core.Record) error {
	if err := s.writable(); err != nil {
		return err
	}
	if rec.Name() == "" {
		return core.Invalid("record has no name attribute")
	}

	return s.locked(ctx, func(ctx context.Context, tok core.VersionToken) error {
		_, err := s.conn.WriteNewRecord(ctx, s.container, rec, tok)
		return err
	})
}

// Update merges a patch into the named record. Missing records fail with
// NotFound before any lock is taken.
func (s *Store) Update(ctx context.Context, name string, patch core.Record) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := s.precheck(ctx, name); err != nil {
		return err
	}

	return s.locked(ctx, func(ctx context.Context, tok core.VersionToken) error {
		_, err := s.conn.UpdateRecord(ctx, s.container, name, patch, tok)
		return err
	})
}

// Delete removes the named record. Missing records fail with NotFound
// before any lock is taken.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.writable(); err != nil {
		return err
	}
	if err := s.precheck(ctx, name); err != nil {
		return err
	}

	return s.locked(ctx, func(ctx context.Context, tok core.VersionToken) error {
		_, err := s.conn.DeleteRecord(ctx, s.container, name, tok)
		return err
	})
}

// locked runs the mutation inside the acquire → read token → commit →
// release sequence. The lock is released on every exit path; the advisory
// cache invalidation only fires after a successful commit.
func (s *Store) locked(ctx context.Context, mutate func(ctx context.Context, tok core.VersionToken) error) error {
	s.writes.Add(1)
	err := s.locks.WithLock(ctx, s.container, func(ctx context.Context) error {
		tok, err := s.locks.Token(ctx, s.container)
		if err != nil {
			var ce *core.Error
			if !errors.As(err, &ce) {
				err = core.Backend(err, "Failed to retrieve %s", s.container)
			}
			return err
		}
		return mutate(ctx, tok)
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("write failed", "container", s.container, "error", err)
		}
		return err
	}

	if ierr := s.conn.InvalidateCache(ctx, s.container); ierr != nil && s.logger != nil {
		s.logger.Warn("cache invalidation failed", "container", s.container, "error", ierr)
	}
	return nil
}

// precheck confirms the named record exists so writes can fail cheap
// without contending for the lock.
func (s *Store) precheck(ctx context.Context, name string) error {
	coll, _, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	if coll.IndexOf(name) < 0 {
		return core.NotFound("no record named %q in %s", name, s.container)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context) (core.Collection, core.VersionToken, error) {
	s.reads.Add(1)
	coll, tok, err := s.conn.ReadCollection(ctx, s.container)
	if err != nil {
		// Connectors already shape their own failures; only raw transport
		// errors get wrapped here.
		var ce *core.Error
		if errors.As(err, &ce) {
			return nil, "", err
		}
		return nil, "", core.Backend(err, "Failed to retrieve %s", s.container)
	}
	return coll, tok, nil
}

func (s *Store) writable() error {
	if s.capability == ReadOnly {
		return &core.Error{
			Kind:       core.ErrReadOnly,
			StatusCode: 400,
			Message:    s.container + " is read-only",
		}
	}
	return nil
}
