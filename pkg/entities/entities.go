// Package entities provides the specialized clients: read-write record
// collections (Studies, Companies, Interactions) and read-only facades over
// backend usage metrics (Users, Storage, Actions). Each is a configured
// object store or a thin view over the connector, never a subclass.
package entities

import (
	"context"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/store"
)

// Container names of the record collections.
const (
	ContainerStudies      = "Studies"
	ContainerCompanies    = "Companies"
	ContainerInteractions = "Interactions"
)

// FileHashKey is the attribute Interactions lookups key on.
const FileHashKey = "file_hash"

// Studies returns the read-write client for the Studies collection.
func Studies(conn core.Connector, opts ...store.Option) *store.Store {
	return store.New(ContainerStudies, conn, opts...)
}

// Companies returns the read-write client for the Companies collection.
func Companies(conn core.Connector, opts ...store.Option) *store.Store {
	return store.New(ContainerCompanies, conn, opts...)
}

// Interactions is the read-write client for the Interactions collection,
// with an extra lookup keyed on the file hash attribute.
type Interactions struct {
	*store.Store
}

// NewInteractions returns the Interactions client.
func NewInteractions(conn core.Connector, opts ...store.Option) *Interactions {
	return &Interactions{Store: store.New(ContainerInteractions, conn, opts...)}
}

// FindByHash returns the interactions whose file_hash equals the given
// hash, with the same not-found semantics as FindByX.
func (i *Interactions) FindByHash(ctx context.Context, fileHash string) (core.Collection, error) {
	return i.FindByX(ctx, FileHashKey, fileHash)
}

// Users is the read-only facade over the backend's user endpoints.
type Users struct {
	conn core.Connector
}

// NewUsers returns the Users facade.
func NewUsers(conn core.Connector) *Users {
	return &Users{conn: conn}
}

// GetAll returns the raw user list payload.
func (u *Users) GetAll(ctx context.Context) (any, error) {
	return u.conn.ReadUsageMetric(ctx, core.MetricUserList)
}

// GetMyself returns the raw current-user payload.
func (u *Users) GetMyself(ctx context.Context) (any, error) {
	return u.conn.ReadUsageMetric(ctx, core.MetricCurrentUser)
}

// Storage is the read-only facade over storage usage and billing.
type Storage struct {
	conn core.Connector
}

// NewStorage returns the Storage facade.
func NewStorage(conn core.Connector) *Storage {
	return &Storage{conn: conn}
}

// GetAll returns the raw repository-size payload.
func (s *Storage) GetAll(ctx context.Context) (any, error) {
	return s.conn.ReadUsageMetric(ctx, core.MetricRepoSize)
}

// GetStorageBilling returns the raw storage billing payload.
func (s *Storage) GetStorageBilling(ctx context.Context) (any, error) {
	return s.conn.ReadUsageMetric(ctx, core.MetricStorageBilling)
}
