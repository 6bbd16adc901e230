// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package replica

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/errors"
	"github.com/repstream/replog/quota"
	"github.com/repstream/replog/storage"
)

const (
	// idle poll interval used when none is configured
	DefaultFetchInterval = 50 * time.Millisecond

	// per-partition fetch size used when none is configured
	DefaultFetchMaxBytes = 1024 * 1024
)

// Fetcher is the follower side of the replication fetch pipeline: it
// replicates every partition this broker follows under one remote
// leader.
//
// Each fetch cycle splits the followed partitions by their current
// throttle membership and serves the two classes on separate lanes, so
// unthrottled partitions never queue behind a throttled transfer's
// delay. Throttled lanes record received bytes with the
// follower-direction quota manager and observe the returned delay
// before appending, keeping the sustained inbound rate at the bound.
type Fetcher struct {
	brokerID int32
	leaderID int32
	source   BatchSource
	log      *storage.Log
	view     *cluster.View
	quota    *quota.Manager
	interval time.Duration
	maxBytes int
	zlog     *zap.Logger
}

func NewFetcher(brokerID, leaderID int32, source BatchSource, log *storage.Log,
	view *cluster.View, followerQuota *quota.Manager,
	interval time.Duration, maxBytes int, logger *zap.Logger) *Fetcher {
	if interval <= 0 {
		interval = DefaultFetchInterval
	}
	if maxBytes <= 0 {
		maxBytes = DefaultFetchMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		brokerID: brokerID,
		leaderID: leaderID,
		source:   source,
		log:      log,
		view:     view,
		quota:    followerQuota,
		interval: interval,
		maxBytes: maxBytes,
		zlog: logger.With(
			zap.Int32("broker", brokerID),
			zap.Int32("leader", leaderID)),
	}
}

// Run replicates until the context is canceled, including promptly
// abandoning a throttle delay in progress.
func (f *Fetcher) Run(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { f.runLane(ctx, true) })
	wg.Go(func() { f.runLane(ctx, false) })
	wg.Wait()
}

// partitions returns the fetch slices of the followed partitions whose
// current throttle membership matches the lane.
func (f *Fetcher) partitions(throttled bool) []PartitionFetch {
	var parts []PartitionFetch
	for _, tp := range f.view.FollowedBy(f.brokerID, f.leaderID) {
		if f.quota.IsThrottled(tp) != throttled {
			continue
		}
		parts = append(parts, PartitionFetch{
			TP:       tp,
			Offset:   f.log.EndOffset(tp),
			MaxBytes: f.maxBytes,
		})
	}
	return parts
}

func (f *Fetcher) runLane(ctx context.Context, throttled bool) {
	for ctx.Err() == nil {
		parts := f.partitions(throttled)
		if len(parts) == 0 {
			if quota.Sleep(ctx, f.interval) != nil {
				return
			}
			continue
		}
		resp, err := f.source.Fetch(ctx, FetchRequest{
			FollowerID: f.brokerID,
			Partitions: parts,
		})
		if err != nil {
			if ctx.Err() != nil || errors.IsInterrupted(err) {
				return
			}
			f.zlog.Warn("replication fetch failed", zap.Error(err))
			if quota.Sleep(ctx, f.interval) != nil {
				return
			}
			continue
		}
		progress := false
		for i := range resp.Partitions {
			pd := &resp.Partitions[i]
			if pd.NotLeader || len(pd.Records) == 0 {
				continue
			}
			// membership is re-checked against the live snapshot:
			// a partition un-throttled mid-cycle must not be metered
			if throttled && f.quota.IsThrottled(pd.TP) {
				d := f.quota.Record(pd.TP, uint64(pd.Size()))
				if quota.Sleep(ctx, d) != nil {
					return
				}
			}
			if !f.append(pd) {
				continue
			}
			progress = true
		}
		if !progress {
			if quota.Sleep(ctx, f.interval) != nil {
				return
			}
		}
	}
}

func (f *Fetcher) append(pd *PartitionData) bool {
	for _, rec := range pd.Records {
		if _, err := f.log.Append(pd.TP, rec.Data); err != nil {
			f.zlog.Error("append of replicated record failed",
				zap.String("partition", pd.TP.String()),
				zap.Int64("offset", rec.Offset),
				zap.Error(err))
			return false
		}
	}
	return true
}
