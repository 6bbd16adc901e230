// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package quota bounds the byte throughput of selected
// partition-replica copy traffic inside a replicated log broker.
//
// # Overview
//
// Replication traffic between brokers competes with client traffic for
// network and disk bandwidth. During partition reassignment or broker
// recovery, bulk copy traffic can starve everything else. This package
// lets an operator select specific partition replicas and bound the
// sustained byte rate they replicate at, per broker and per direction,
// without touching any other partition.
//
// # Components
//
//   - Limiter: windowed byte-rate limiter, pure rate math plus the
//     delay computation; sleeping happens at the call site
//   - ThrottleConfig: immutable snapshot of the active limit and the
//     throttled partition sets, scoped to one broker id
//   - Manager: one per direction per broker, composing a Limiter with
//     the current snapshot behind an atomic reference
//   - Distributor: watches the cluster configuration store and
//     publishes fresh snapshots to both managers
//   - Meter/Reporter: achieved byte rate per direction
//
// # Windowed Average Semantics
//
// The limiter measures the average rate over a fixed window (10s by
// default) and computes, on every Record, the minimum delay that
// brings the windowed average back to the configured limit. Short
// bursts inside a window may exceed the limit; the sustained rate over
// a full window converges to it. This is POST-recording throttling:
// bytes already moved are accounted and the pipeline pauses before
// moving the next batch, which suits replication where batch sizes are
// known only after the transfer.
//
// # Selective Gating
//
// Gating is strictly per-partition membership. Unthrottled partitions
// never touch a manager: no metering, no shared lock, no queueing
// behind a sleeping throttled transfer. A broker-wide rate limit value
// therefore bounds only the partitions named by the throttled replica
// lists, which keeps throttled and unthrottled throughput on the same
// broker fully independent. This is an intentional invariant, not an
// optimization.
//
// # Configuration
//
// Three entry namespaces are consumed from the configuration store:
//
//	broker scope  replication.throttled.rate              integer bytes/sec
//	topic scope   leader.replication.throttled.replicas   partition:brokerId[,...] or *
//	topic scope   follower.replication.throttled.replicas same format
//
// The Distributor materializes only the pairs naming its own broker
// id. Malformed list text degrades to "not throttled" for that topic;
// a malformed or absent rate degrades to "unlimited".
package quota
