// Package marl is the composition root for the marl client library.
//
// It wires the entity stores (Domain Layer) to a backend connector
// (Persistence Layer) behind a small facade, so callers deal with typed
// entity operations instead of raw storage calls.
//
// Philosophy:
//
// Marl treats a remote repository as a database. Each entity type lives in
// one collection file (a "container"); reads pull the whole collection and
// filter in memory, writes go through a container lock plus an optimistic
// version token so concurrent clients never silently overwrite each other.
// The default backend stores collections as JSON files in a git repository,
// but the core is agnostic: any core.Connector works.
//
// Features:
//
//   - Entity clients for studies, companies, interactions, users, storage
//     usage, and workflow actions, all sharing one connector.
//   - Optimistic concurrency: fail-fast container locks and version tokens,
//     with an administrative path for breaking abandoned locks.
//   - Pure in-memory query engine: attribute filters, sorting, limits.
//   - Typed retrieval: generic wrapper (NewTyped[T]) for struct-mapped
//     access to any container.
//   - Default adapter (FS + git): collections as versioned JSON or YAML
//     files with one commit per mutation.
//   - Alternative adapters: DynamoDB (conditional writes) and in-memory
//     (tests, examples).
//
// Usage:
//
//	client, err := marl.Open(ctx, "./data",
//		marl.WithAutoInit(true),
//		marl.WithLogger(logger),
//	)
//
//	studies, err := client.Studies.FindByX(ctx, "status", "active")
package marl
