package marl

import (
	"context"
	"log/slog"

	"github.com/marldb/marl/pkg/adapters/gitfs"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/entities"
	"github.com/marldb/marl/pkg/lock"
	"github.com/marldb/marl/pkg/store"
	"github.com/marldb/marl/pkg/typed"
)

// --- Types ---

// Record is a public alias for the schemaless record type.
type Record = core.Record

// Collection is a public alias for an ordered set of records.
type Collection = core.Collection

// Envelope is a public alias for the uniform result envelope.
type Envelope = core.Envelope

// TypedClient is a public alias for the type-safe entity client.
type TypedClient[T any] = typed.Client[T]

// --- Configuration ---

type options struct {
	conn     core.Connector
	fs       gitfs.Config
	logger   *slog.Logger
	readOnly bool
}

// Option defines a functional option for configuring the client.
type Option func(*options)

// WithLogger sets the logger for the client and its stores.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithConnector injects a custom backend connector, bypassing the default
// git-backed one. The path argument to Open is ignored when set.
func WithConnector(conn core.Connector) Option {
	return func(o *options) { o.conn = conn }
}

// WithAutoInit enables automatic initialization of the repository
// (creates the directory and runs git init).
func WithAutoInit(auto bool) Option {
	return func(o *options) { o.fs.AutoInit = auto }
}

// WithMustExist ensures the repository directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) { o.fs.MustExist = must }
}

// WithPlain disables git versioning; collections live on the bare
// filesystem and repository metrics are unavailable.
func WithPlain(plain bool) Option {
	return func(o *options) { o.fs.Plain = plain }
}

// WithFormat selects the collection file format (json or yaml).
func WithFormat(format gitfs.Format) Option {
	return func(o *options) { o.fs.Format = format }
}

// WithSystemDir overrides the hidden directory name (default ".marl").
func WithSystemDir(name string) Option {
	return func(o *options) { o.fs.SystemDir = name }
}

// WithWatch enables the filesystem watcher that invalidates the read
// cache when collection files change outside this process.
func WithWatch(watch bool) Option {
	return func(o *options) { o.fs.Watch = watch }
}

// WithReadOnly makes every entity store reject writes.
func WithReadOnly(ro bool) Option {
	return func(o *options) { o.readOnly = ro }
}

// --- Client ---

// Client bundles one typed entity client per container plus the read-only
// usage facades, all sharing a single connector and lock manager.
type Client struct {
	Studies      *store.Store
	Companies    *store.Store
	Interactions *entities.Interactions
	Users        *entities.Users
	Storage      *entities.Storage
	Actions      *entities.Actions

	conn  core.Connector
	locks *lock.Manager
}

// Open creates a client over a git-backed repository at path. Use options
// to control initialization, format, and versioning; WithConnector swaps
// in a different backend entirely.
func Open(ctx context.Context, path string, opts ...Option) (*Client, error) {
	var o options
	o.fs.Path = path
	for _, opt := range opts {
		opt(&o)
	}

	conn := o.conn
	if conn == nil {
		o.fs.Logger = o.logger
		fsConn := gitfs.New(o.fs)
		if err := fsConn.Initialize(ctx); err != nil {
			return nil, err
		}
		conn = fsConn
	}
	return New(conn, opts...), nil
}

// New wraps an already-initialized connector.
func New(conn core.Connector, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	storeOpts := []store.Option{store.WithLogger(o.logger)}
	if o.readOnly {
		storeOpts = append(storeOpts, store.WithCapability(store.ReadOnly))
	}

	return &Client{
		Studies:      entities.Studies(conn, storeOpts...),
		Companies:    entities.Companies(conn, storeOpts...),
		Interactions: entities.NewInteractions(conn, storeOpts...),
		Users:        entities.NewUsers(conn),
		Storage:      entities.NewStorage(conn),
		Actions:      entities.NewActions(conn, o.logger),
		conn:         conn,
		locks:        lock.NewManager(conn, o.logger),
	}
}

// Connector returns the underlying backend connector.
func (c *Client) Connector() core.Connector { return c.conn }

// Locks returns the shared lock manager, for lock inspection and the
// administrative stale-lock recovery path.
func (c *Client) Locks() *lock.Manager { return c.locks }

// Sync pushes local commits and integrates remote changes, when the
// connector is backed by a git clone with an 'origin' remote. Connectors
// without a remote counterpart report an invalid-parameter error.
func (c *Client) Sync(ctx context.Context) error {
	syncer, ok := c.conn.(interface{ Sync(context.Context) error })
	if !ok {
		return core.Invalid("the configured backend does not support sync")
	}
	return syncer.Sync(ctx)
}

// Close releases backend resources (the filesystem watcher, for the
// git-backed connector). Connectors without resources close as a no-op.
func (c *Client) Close() error {
	if closer, ok := c.conn.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Store returns the raw store for an arbitrary container name, for
// containers beyond the built-in entity set.
func (c *Client) Store(container string, opts ...store.Option) *store.Store {
	return store.New(container, c.conn, opts...)
}

// --- Typed factory ---

// NewTyped creates a type-safe client over an entity store.
func NewTyped[T any](s *store.Store) *typed.Client[T] {
	return typed.NewClient[T](s)
}

// --- Envelope helpers ---

// Enclose converts a (payload, error) pair into the uniform envelope for
// serialization boundaries like the CLI's JSON output.
func Enclose(payload any, err error) Envelope {
	return core.Enclose(payload, err)
}
