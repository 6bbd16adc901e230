// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package replica

import (
	"context"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/storage"
)

// PartitionFetch names one partition slice of a fetch request.
type PartitionFetch struct {
	TP       cluster.TP
	Offset   int64
	MaxBytes int
}

// FetchRequest asks a leader for records of a set of partitions.
type FetchRequest struct {
	FollowerID int32
	Partitions []PartitionFetch
}

// PartitionData is one partition's slice of a fetch response.
type PartitionData struct {
	TP      cluster.TP
	Records []storage.Record

	// set when the serving broker does not currently lead the
	// partition; the follower should refresh its assignment view
	NotLeader bool
}

// Size returns the payload byte count of the partition data.
func (pd *PartitionData) Size() int {
	n := 0
	for _, r := range pd.Records {
		n += len(r.Data)
	}
	return n
}

// FetchResponse carries the data slices of one fetch round trip.
type FetchResponse struct {
	Partitions []PartitionData
}

// BatchSource is the replication transport seam: anything that can
// answer fetch requests for a leader. An in-process Endpoint
// implements it directly; a networked transport would adapt it.
type BatchSource interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}
