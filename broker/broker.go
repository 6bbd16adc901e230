// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package broker assembles the replication throttling core into a
// runnable broker: storage, the two per-direction quota managers, the
// configuration distributor and the replication fetch pipeline. The
// registry of broker instances is deliberately owned by whoever builds
// the cluster, typically the service entry point or a test harness; no
// shared global state lives here.
package broker

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/confstore"
	"github.com/repstream/replog/errors"
	"github.com/repstream/replog/quota"
	"github.com/repstream/replog/replica"
	"github.com/repstream/replog/storage"
)

// Broker ties one broker's replication throttling machinery together.
type Broker struct {
	opts Options
	zlog *zap.Logger

	store confstore.Store
	view  *cluster.View
	log   *storage.Log

	leaderQ   *quota.Manager
	followerQ *quota.Manager
	dist      *quota.Distributor
	endpoint  *replica.Endpoint
	reporter  *quota.Reporter

	mu       sync.Mutex
	peers    map[int32]replica.BatchSource
	cancelFn context.CancelFunc
	wg       conc.WaitGroup
	started  bool
}

// New builds a broker around the given configuration store and
// assignment view. Nothing runs until Start.
func New(opts Options, store confstore.Store, view *cluster.View, logger *zap.Logger) *Broker {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.Int32("broker", opts.ID))

	b := &Broker{
		opts:      opts,
		zlog:      logger,
		store:     store,
		view:      view,
		log:       storage.NewLog(opts.SegmentBytes),
		leaderQ:   quota.NewManager(quota.LeaderReplication, opts.Window),
		followerQ: quota.NewManager(quota.FollowerReplication, opts.Window),
		peers:     make(map[int32]replica.BatchSource),
	}
	b.dist = quota.NewDistributor(opts.ID, store, view, b.leaderQ, b.followerQ, logger)
	b.endpoint = replica.NewEndpoint(opts.ID, b.log, view, b.leaderQ, logger)
	b.reporter = quota.NewReporter(logger, opts.MetricsInterval, b.leaderQ, b.followerQ)
	return b
}

// ID returns the broker id.
func (b *Broker) ID() int32 {
	return b.opts.ID
}

// Log exposes the broker's partition log.
func (b *Broker) Log() *storage.Log {
	return b.log
}

// Endpoint exposes the leader-side fetch surface, for peers (or a
// transport adapter) to replicate from.
func (b *Broker) Endpoint() replica.BatchSource {
	return b.endpoint
}

// LeaderQuota returns the leader-direction quota manager.
func (b *Broker) LeaderQuota() *quota.Manager {
	return b.leaderQ
}

// FollowerQuota returns the follower-direction quota manager.
func (b *Broker) FollowerQuota() *quota.Manager {
	return b.followerQ
}

// ConnectPeer registers the fetch source of a remote leader. Peers
// connected before Start get a replication fetcher each.
func (b *Broker) ConnectPeer(id int32, source replica.BatchSource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.Wrap(errors.InvalidArgument, "cannot connect peers after start")
	}
	if _, ok := b.peers[id]; ok {
		return errors.Wrapf(errors.AlreadyExists, "peer %d already connected", id)
	}
	b.peers[id] = source
	return nil
}

// Start loads and applies the persisted throttle configuration, then
// launches the replication fetchers. The synchronous configuration
// load ordering is what closes the join race: by the time any fetch
// cycle runs, a previously persisted throttle is already enforced.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.Wrap(errors.AlreadyExists, "broker already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := b.dist.Start(runCtx); err != nil {
		cancel()
		return err
	}

	b.wg.Go(func() { b.reporter.Run(runCtx) })
	for id, source := range b.peers {
		f := replica.NewFetcher(b.opts.ID, id, source, b.log, b.view, b.followerQ,
			b.opts.FetchInterval, b.opts.FetchMaxBytes, b.zlog)
		b.wg.Go(func() { f.Run(runCtx) })
	}

	b.cancelFn = cancel
	b.started = true
	b.zlog.Info("broker started", zap.Int("peers", len(b.peers)))
	return nil
}

// Stop cancels the run context and waits for every fetcher to return.
// In-flight throttle delays are interrupted, bounding shutdown
// latency.
func (b *Broker) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.cancelFn()
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	b.started = false
	b.mu.Unlock()
	b.zlog.Info("broker stopped")
}
