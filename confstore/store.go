// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package confstore

import (
	"context"
)

// ScopeKind enumerates the namespaces the cluster configuration
// store is partitioned into.
type ScopeKind string

const (
	// configuration applicable to a single broker id
	ScopeBroker ScopeKind = "broker"

	// configuration applicable to a single topic
	ScopeTopic ScopeKind = "topic"
)

const (
	// Operation string for an entry add/insert notification
	AddOp = "insert"

	// Operation string for an entry update notification
	UpdateOp = "update"

	// Operation string for an entry delete notification
	DeleteOp = "delete"
)

// Scope names the owner of a configuration entry, e.g. broker "101"
// or topic "orders".
type Scope struct {
	Kind ScopeKind `bson:"kind"`
	Name string    `bson:"name"`
}

// Entry is one scoped key-value configuration record. Delete
// notifications carry the key with an empty value.
type Entry struct {
	Scope Scope
	Key   string
	Value string
}

// WatchFn receives change notifications for configuration entries.
// op is one of AddOp, UpdateOp or DeleteOp.
type WatchFn func(op string, e Entry)

// Store is the watchable cluster configuration capability consumed by
// the replication core. Concrete coordination services plug in behind
// this interface; the core never references them directly.
type Store interface {
	// Get returns the value of a single entry, NotFound if absent
	Get(ctx context.Context, scope Scope, key string) (string, error)

	// List returns every entry of the given kind carrying the given
	// key, across all scope names
	List(ctx context.Context, kind ScopeKind, key string) ([]Entry, error)

	// Set inserts or replaces an entry
	Set(ctx context.Context, e Entry) error

	// Delete removes an entry, NotFound if absent
	Delete(ctx context.Context, scope Scope, key string) error

	// Watch registers for change notifications until the context is
	// canceled; the callback runs on the store's notification routine
	// and must not block for long
	Watch(ctx context.Context, fn WatchFn) error
}
