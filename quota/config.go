// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"strconv"
	"strings"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/confstore"
	"github.com/repstream/replog/errors"
)

// configuration entry keys, persisted and watched through the cluster
// configuration store
const (
	// broker scoped integer bytes/sec replication rate limit
	RateKey = "replication.throttled.rate"

	// topic scoped replica list throttled on the leader side
	LeaderReplicasKey = "leader.replication.throttled.replicas"

	// topic scoped replica list throttled on the follower side
	FollowerReplicasKey = "follower.replication.throttled.replicas"

	// list value selecting every partition and every assigned replica
	// of the topic
	Wildcard = "*"
)

// Direction distinguishes the two replication quota managers of a
// broker.
type Direction int

const (
	// bytes sent while serving as leader for a throttled partition
	LeaderReplication Direction = iota

	// bytes requested while replicating a throttled partition as
	// follower
	FollowerReplication
)

func (d Direction) String() string {
	if d == LeaderReplication {
		return "leader-replication"
	}
	return "follower-replication"
}

// replicasKey returns the topic entry key backing this direction.
func (d Direction) replicasKey() string {
	if d == LeaderReplication {
		return LeaderReplicasKey
	}
	return FollowerReplicasKey
}

// ReplicaRef is one partition:broker pair of a throttled replica list.
type ReplicaRef struct {
	Partition int32
	Broker    int32
}

// ParseReplicaList parses throttled replica list text of the form
// "partition:brokerId[,partition:brokerId...]". The wildcard value
// selects everything and returns wild=true with no refs.
func ParseReplicaList(text string) (refs []ReplicaRef, wild bool, err error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == Wildcard {
		return nil, true, nil
	}
	if trimmed == "" {
		return nil, false, errors.Wrap(errors.InvalidArgument, "empty throttled replica list")
	}
	for _, pair := range strings.Split(trimmed, ",") {
		fields := strings.Split(strings.TrimSpace(pair), ":")
		if len(fields) != 2 {
			return nil, false, errors.Wrapf(errors.InvalidArgument, "malformed throttled replica entry %q", pair)
		}
		p, perr := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
		b, berr := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 32)
		if perr != nil || berr != nil || p < 0 || b < 0 {
			return nil, false, errors.Wrapf(errors.InvalidArgument, "malformed throttled replica entry %q", pair)
		}
		refs = append(refs, ReplicaRef{Partition: int32(p), Broker: int32(b)})
	}
	return refs, false, nil
}

// ThrottleConfig is an immutable snapshot of the active rate limit and
// the throttled partition sets, already scoped down to one broker id.
// A configuration change produces a new instance; readers hold a
// reference to exactly one instance at a time.
type ThrottleConfig struct {
	limit    uint64
	limited  bool
	leader   map[cluster.TP]struct{}
	follower map[cluster.TP]struct{}
}

// EmptyConfig is the snapshot a manager starts from before any
// configuration has been loaded: unlimited, nothing throttled.
func EmptyConfig() *ThrottleConfig {
	return &ThrottleConfig{
		leader:   map[cluster.TP]struct{}{},
		follower: map[cluster.TP]struct{}{},
	}
}

// Limit returns the rate limit and whether one is configured.
func (c *ThrottleConfig) Limit() (uint64, bool) {
	return c.limit, c.limited
}

// Throttled reports membership of the partition in the throttled set
// of the given direction.
func (c *ThrottleConfig) Throttled(d Direction, tp cluster.TP) bool {
	if d == LeaderReplication {
		_, ok := c.leader[tp]
		return ok
	}
	_, ok := c.follower[tp]
	return ok
}

// ThrottledCount returns the size of a direction's throttled set.
func (c *ThrottleConfig) ThrottledCount(d Direction) int {
	if d == LeaderReplication {
		return len(c.leader)
	}
	return len(c.follower)
}

// BuildConfig materializes a snapshot for one broker from raw
// configuration entries. rateText is the broker's rate entry value,
// ignored unless present. Topic entries that fail to parse contribute
// an empty set for that topic, reported through warn, never an error:
// a broker must not stop replicating because an admin fat-fingered a
// throttle list.
func BuildConfig(broker int32, view *cluster.View, rateText string, hasRate bool,
	leaderEntries, followerEntries []confstore.Entry,
	warn func(topic, text string, err error)) *ThrottleConfig {

	cfg := EmptyConfig()
	if hasRate {
		limit, err := strconv.ParseUint(strings.TrimSpace(rateText), 10, 64)
		if err != nil || limit == 0 {
			if warn != nil {
				warn("", rateText, errors.Wrapf(errors.InvalidArgument, "malformed throttle rate %q", rateText))
			}
		} else {
			cfg.limit = limit
			cfg.limited = true
		}
	}
	buildSet(broker, view, leaderEntries, cfg.leader, warn)
	buildSet(broker, view, followerEntries, cfg.follower, warn)
	return cfg
}

func buildSet(broker int32, view *cluster.View, entries []confstore.Entry,
	set map[cluster.TP]struct{}, warn func(topic, text string, err error)) {

	for _, e := range entries {
		topic := e.Scope.Name
		refs, wild, err := ParseReplicaList(e.Value)
		if err != nil {
			if warn != nil {
				warn(topic, e.Value, err)
			}
			continue
		}
		if wild {
			// all partitions of the topic, all assigned replicas:
			// materialize the ones this broker carries
			for _, p := range view.Partitions(topic) {
				tp := cluster.TP{Topic: topic, Partition: p}
				if view.IsReplica(tp, broker) {
					set[tp] = struct{}{}
				}
			}
			continue
		}
		for _, r := range refs {
			if r.Broker != broker {
				continue
			}
			set[cluster.TP{Topic: topic, Partition: r.Partition}] = struct{}{}
		}
	}
}
