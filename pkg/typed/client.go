// Package typed provides a type-safe view over an object store. It converts
// between raw records and user structs via a JSON round-trip, so any struct
// with json tags works without registration.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/query"
	"github.com/marldb/marl/pkg/store"
)

// Client wraps a store to provide typed access.
type Client[T any] struct {
	store *store.Store
}

// NewClient creates a typed wrapper around an existing store.
func NewClient[T any](s *store.Store) *Client[T] {
	return &Client[T]{store: s}
}

// All returns every record converted to T.
func (c *Client[T]) All(ctx context.Context) ([]T, error) {
	coll, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return fromCollection[T](coll)
}

// FindByName returns the matching records converted to T.
func (c *Client[T]) FindByName(ctx context.Context, name string) ([]T, error) {
	coll, err := c.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return fromCollection[T](coll)
}

// Search applies filters and options, converting the result to T.
func (c *Client[T]) Search(ctx context.Context, f query.Filter, opts query.Options) ([]T, error) {
	coll, err := c.store.Search(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return fromCollection[T](coll)
}

// Create converts the value to a record and appends it.
func (c *Client[T]) Create(ctx context.Context, v T) error {
	rec, err := toRecord(v)
	if err != nil {
		return err
	}
	return c.store.Create(ctx, rec)
}

// Update converts the patch value to a record and merges it into the named
// record.
func (c *Client[T]) Update(ctx context.Context, name string, patch T) error {
	rec, err := toRecord(patch)
	if err != nil {
		return err
	}
	return c.store.Update(ctx, name, rec)
}

// Delete removes the named record.
func (c *Client[T]) Delete(ctx context.Context, name string) error {
	return c.store.Delete(ctx, name)
}

func toRecord[T any](v T) (core.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed value: %w", err)
	}
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to convert typed value to record: %w", err)
	}
	return rec, nil
}

func fromCollection[T any](coll core.Collection) ([]T, error) {
	out := make([]T, 0, len(coll))
	for _, rec := range coll {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("record marshal failed: %w", err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal to target type failed: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
