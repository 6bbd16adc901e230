// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package replica

import (
	"context"

	"go.uber.org/zap"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/quota"
	"github.com/repstream/replog/storage"
)

// Endpoint is the leader side of the replication fetch pipeline: it
// serves fetch requests for the partitions this broker leads, gating
// throttled partitions through the leader-direction quota manager.
//
// Unthrottled partitions are served before any throttled pacing runs,
// and pacing applies pre-send: throttled bytes are recorded and the
// delay observed before the data leaves, so a follower only ever sees
// data that already fit under the windowed average.
type Endpoint struct {
	brokerID int32
	log      *storage.Log
	view     *cluster.View
	quota    *quota.Manager
	zlog     *zap.Logger
}

func NewEndpoint(brokerID int32, log *storage.Log, view *cluster.View,
	leaderQuota *quota.Manager, logger *zap.Logger) *Endpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Endpoint{
		brokerID: brokerID,
		log:      log,
		view:     view,
		quota:    leaderQuota,
		zlog:     logger,
	}
}

// Fetch serves one replication fetch request. Each concurrent request
// runs on its own calling goroutine; a throttle delay suspends only
// that caller.
func (e *Endpoint) Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	var resp FetchResponse
	var throttled []PartitionFetch

	for _, pf := range req.Partitions {
		if !e.view.IsLeader(pf.TP, e.brokerID) {
			resp.Partitions = append(resp.Partitions, PartitionData{
				TP:        pf.TP,
				NotLeader: true,
			})
			continue
		}
		if e.quota.IsThrottled(pf.TP) {
			throttled = append(throttled, pf)
			continue
		}
		pd, err := e.read(pf)
		if err != nil {
			return resp, err
		}
		resp.Partitions = append(resp.Partitions, pd)
	}

	for _, pf := range throttled {
		pd, err := e.read(pf)
		if err != nil {
			return resp, err
		}
		if n := pd.Size(); n > 0 {
			d := e.quota.Record(pf.TP, uint64(n))
			if err := quota.Sleep(ctx, d); err != nil {
				return resp, err
			}
		}
		resp.Partitions = append(resp.Partitions, pd)
	}
	return resp, nil
}

func (e *Endpoint) read(pf PartitionFetch) (PartitionData, error) {
	recs, err := e.log.Read(pf.TP, pf.Offset, pf.MaxBytes)
	if err != nil {
		e.zlog.Warn("replication read failed",
			zap.String("partition", pf.TP.String()),
			zap.Int64("offset", pf.Offset),
			zap.Error(err))
		return PartitionData{}, err
	}
	return PartitionData{
		TP:      pf.TP,
		Records: recs,
	}, nil
}
