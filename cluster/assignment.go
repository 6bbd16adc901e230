// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package cluster

import (
	"fmt"
	"sort"
	"sync"
)

// TP identifies a single partition of a topic.
type TP struct {
	Topic     string
	Partition int32
}

func (tp TP) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// View holds the partition replica assignment of the cluster, mapping
// each partition to its ordered replica list with the leader first.
// The replication core only reads from it, to classify a transfer as
// leader-serving or follower-requesting for a given broker; assignment
// changes are driven externally by the controller or the test harness.
type View struct {
	mu       sync.RWMutex
	replicas map[TP][]int32
}

func NewView() *View {
	return &View{
		replicas: make(map[TP][]int32),
	}
}

// Assign records the replica list for a partition, leader first,
// replacing any previous assignment for the same partition.
func (v *View) Assign(tp TP, replicas ...int32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replicas[tp] = append([]int32(nil), replicas...)
}

// Leader returns the current leader of the partition, if assigned.
func (v *View) Leader(tp TP) (int32, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r, ok := v.replicas[tp]
	if !ok || len(r) == 0 {
		return 0, false
	}
	return r[0], true
}

// Replicas returns a copy of the ordered replica list of the partition.
func (v *View) Replicas(tp TP) []int32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]int32(nil), v.replicas[tp]...)
}

// Partitions returns the sorted partition ids known for a topic.
func (v *View) Partitions(topic string) []int32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var list []int32
	for tp := range v.replicas {
		if tp.Topic == topic {
			list = append(list, tp.Partition)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// IsLeader reports whether the given broker currently leads the partition.
func (v *View) IsLeader(tp TP, broker int32) bool {
	l, ok := v.Leader(tp)
	return ok && l == broker
}

// IsReplica reports whether the broker is part of the replica list.
func (v *View) IsReplica(tp TP, broker int32) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, id := range v.replicas[tp] {
		if id == broker {
			return true
		}
	}
	return false
}

// IsFollower reports whether the broker replicates the partition
// without leading it.
func (v *View) IsFollower(tp TP, broker int32) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	r := v.replicas[tp]
	if len(r) == 0 || r[0] == broker {
		return false
	}
	for _, id := range r[1:] {
		if id == broker {
			return true
		}
	}
	return false
}

// FollowedBy returns the partitions the given broker replicates as a
// follower under the specified leader, in a stable order.
func (v *View) FollowedBy(broker, leader int32) []TP {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var list []TP
	for tp, r := range v.replicas {
		if len(r) == 0 || r[0] != leader {
			continue
		}
		for _, id := range r[1:] {
			if id == broker {
				list = append(list, tp)
				break
			}
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Topic != list[j].Topic {
			return list[i].Topic < list[j].Topic
		}
		return list[i].Partition < list[j].Partition
	})
	return list
}
