// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/confstore"
	"github.com/repstream/replog/errors"
)

// retry interval after a failed snapshot rebuild, e.g. when the
// config store briefly drops out mid-watch
const rebuildRetryAfter = time.Second

// Distributor translates cluster configuration entries into
// ThrottleConfig snapshots and publishes them to both quota managers
// of a broker.
//
// Start performs a full synchronous load before returning, so a broker
// joining the cluster after a throttle was configured enforces it from
// its very first fetch cycle. Every later change notification funnels
// into a coalescing rebuild: the snapshot is reassembled from a fresh
// listing rather than patched incrementally, which makes the ordering
// of watch delivery irrelevant for correctness.
type Distributor struct {
	brokerID int32
	store    confstore.Store
	view     *cluster.View
	leader   *Manager
	follower *Manager
	log      *zap.Logger

	// bounds warning spam when an admin leaves malformed list text
	// in the store; the entries are re-parsed on every rebuild
	parseWarn rate.Sometimes

	// coalescing trigger, capacity one: any number of notifications
	// collapse into a single pending rebuild
	kick chan struct{}
}

func NewDistributor(brokerID int32, store confstore.Store, view *cluster.View,
	leader, follower *Manager, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{
		brokerID:  brokerID,
		store:     store,
		view:      view,
		leader:    leader,
		follower:  follower,
		log:       logger,
		parseWarn: rate.Sometimes{First: 5, Interval: 10 * time.Second},
		kick:      make(chan struct{}, 1),
	}
}

// Start registers the store watch, then loads and applies the
// persisted configuration synchronously before starting the rebuild
// routine. The watch must be live before the initial listing: a write
// landing while the snapshot is being assembled then leaves a pending
// kick, and the first rebuild re-lists it. The caller must not serve
// any fetch cycle before Start returns.
func (d *Distributor) Start(ctx context.Context) error {
	if err := d.store.Watch(ctx, d.onEvent); err != nil {
		return err
	}
	cfg, err := d.build(ctx)
	if err != nil {
		return errors.Wrapf(errors.Unavailable, "initial throttle config load failed: %s", err)
	}
	d.apply(cfg)
	go d.run(ctx)
	return nil
}

// onEvent runs on the store's notification routine; it only flags that
// a rebuild is due and never blocks.
func (d *Distributor) onEvent(op string, e confstore.Entry) {
	if !d.relevant(e) {
		return
	}
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

func (d *Distributor) relevant(e confstore.Entry) bool {
	switch e.Scope.Kind {
	case confstore.ScopeBroker:
		return e.Key == RateKey && e.Scope.Name == strconv.FormatInt(int64(d.brokerID), 10)
	case confstore.ScopeTopic:
		return e.Key == LeaderReplicasKey || e.Key == FollowerReplicasKey
	}
	return false
}

func (d *Distributor) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.kick:
			cfg, err := d.build(ctx)
			if err != nil {
				d.log.Error("throttle config rebuild failed, will retry",
					zap.Error(err))
				time.AfterFunc(rebuildRetryAfter, func() {
					select {
					case d.kick <- struct{}{}:
					default:
					}
				})
				continue
			}
			d.apply(cfg)
		}
	}
}

// build assembles a fresh snapshot from the store; malformed entry
// values degrade to "not throttled" for their topic.
func (d *Distributor) build(ctx context.Context) (*ThrottleConfig, error) {
	scope := confstore.Scope{
		Kind: confstore.ScopeBroker,
		Name: strconv.FormatInt(int64(d.brokerID), 10),
	}
	hasRate := true
	rateText, err := d.store.Get(ctx, scope, RateKey)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		hasRate = false
	}
	leaderEntries, err := d.store.List(ctx, confstore.ScopeTopic, LeaderReplicasKey)
	if err != nil {
		return nil, err
	}
	followerEntries, err := d.store.List(ctx, confstore.ScopeTopic, FollowerReplicasKey)
	if err != nil {
		return nil, err
	}
	warn := func(topic, text string, perr error) {
		d.parseWarn.Do(func() {
			d.log.Warn("ignoring malformed throttle configuration",
				zap.String("topic", topic),
				zap.String("value", text),
				zap.Error(perr))
		})
	}
	return BuildConfig(d.brokerID, d.view, rateText, hasRate,
		leaderEntries, followerEntries, warn), nil
}

func (d *Distributor) apply(cfg *ThrottleConfig) {
	d.leader.ApplyConfig(cfg)
	d.follower.ApplyConfig(cfg)
	limit, limited := cfg.Limit()
	d.log.Info("applied throttle configuration",
		zap.Bool("limited", limited),
		zap.Uint64("limit_bps", limit),
		zap.Int("leader_throttled", cfg.ThrottledCount(LeaderReplication)),
		zap.Int("follower_throttled", cfg.ThrottledCount(FollowerReplication)))
}
