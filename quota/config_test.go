// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"testing"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/confstore"
)

func topicEntry(topic, key, value string) confstore.Entry {
	return confstore.Entry{
		Scope: confstore.Scope{Kind: confstore.ScopeTopic, Name: topic},
		Key:   key,
		Value: value,
	}
}

func Test_ParseReplicaList(t *testing.T) {
	refs, wild, err := ParseReplicaList("0:101,1:102")
	if err != nil || wild {
		t.Fatalf("unexpected parse result: wild=%v err=%v", wild, err)
	}
	if len(refs) != 2 || refs[0] != (ReplicaRef{0, 101}) || refs[1] != (ReplicaRef{1, 102}) {
		t.Fatalf("unexpected refs: %+v", refs)
	}

	refs, wild, err = ParseReplicaList(" 2:103 ")
	if err != nil || wild || len(refs) != 1 || refs[0] != (ReplicaRef{2, 103}) {
		t.Fatalf("expected single trimmed ref, got %+v wild=%v err=%v", refs, wild, err)
	}

	_, wild, err = ParseReplicaList("*")
	if err != nil || !wild {
		t.Fatalf("expected wildcard, got wild=%v err=%v", wild, err)
	}

	for _, bad := range []string{"", "garbage", "0:", ":101", "0:101,x", "-1:101", "0:-5", "0"} {
		if _, _, err := ParseReplicaList(bad); err == nil {
			t.Errorf("expected parse error for %q", bad)
		}
	}
}

func Test_BuildConfigScoping(t *testing.T) {
	view := cluster.NewView()
	view.Assign(cluster.TP{Topic: "orders", Partition: 0}, 100, 101)
	view.Assign(cluster.TP{Topic: "orders", Partition: 1}, 101, 102)

	leader := []confstore.Entry{
		topicEntry("orders", LeaderReplicasKey, "0:100,1:101"),
	}
	follower := []confstore.Entry{
		topicEntry("orders", FollowerReplicasKey, "0:101,1:102"),
	}

	cfg := BuildConfig(101, view, "5000", true, leader, follower, nil)
	if limit, ok := cfg.Limit(); !ok || limit != 5000 {
		t.Fatalf("expected limit 5000, got %d ok=%v", limit, ok)
	}
	// broker 101 leads orders-1 and follows orders-0; entries naming
	// other brokers must not be materialized here
	if !cfg.Throttled(LeaderReplication, cluster.TP{Topic: "orders", Partition: 1}) {
		t.Errorf("expected orders-1 throttled on leader side for broker 101")
	}
	if cfg.Throttled(LeaderReplication, cluster.TP{Topic: "orders", Partition: 0}) {
		t.Errorf("orders-0 leader entry names broker 100, not 101")
	}
	if !cfg.Throttled(FollowerReplication, cluster.TP{Topic: "orders", Partition: 0}) {
		t.Errorf("expected orders-0 throttled on follower side for broker 101")
	}
	if cfg.Throttled(FollowerReplication, cluster.TP{Topic: "orders", Partition: 1}) {
		t.Errorf("orders-1 follower entry names broker 102, not 101")
	}
}

func Test_BuildConfigWildcard(t *testing.T) {
	view := cluster.NewView()
	view.Assign(cluster.TP{Topic: "orders", Partition: 0}, 100, 101)
	view.Assign(cluster.TP{Topic: "orders", Partition: 1}, 101, 102)
	view.Assign(cluster.TP{Topic: "orders", Partition: 2}, 102, 100)

	leader := []confstore.Entry{
		topicEntry("orders", LeaderReplicasKey, "*"),
	}
	cfg := BuildConfig(101, view, "", false, leader, nil, nil)

	if _, ok := cfg.Limit(); ok {
		t.Fatalf("expected no limit without a rate entry")
	}
	if cfg.ThrottledCount(LeaderReplication) != 2 {
		t.Fatalf("expected wildcard to select the 2 partitions broker 101 carries, got %d",
			cfg.ThrottledCount(LeaderReplication))
	}
	if cfg.Throttled(LeaderReplication, cluster.TP{Topic: "orders", Partition: 2}) {
		t.Errorf("broker 101 is not a replica of orders-2")
	}
}

func Test_BuildConfigMalformed(t *testing.T) {
	view := cluster.NewView()
	view.Assign(cluster.TP{Topic: "orders", Partition: 0}, 100, 101)

	var warned []string
	warn := func(topic, text string, err error) {
		warned = append(warned, topic)
	}
	entries := []confstore.Entry{
		topicEntry("orders", LeaderReplicasKey, "!!not a list!!"),
		topicEntry("audit", LeaderReplicasKey, "0:101"),
	}
	cfg := BuildConfig(101, view, "notanumber", true, entries, nil, warn)

	// malformed rate degrades to unlimited, malformed list text
	// degrades to "not throttled" for that topic only
	if _, ok := cfg.Limit(); ok {
		t.Fatalf("malformed rate must degrade to unlimited")
	}
	if cfg.Throttled(LeaderReplication, cluster.TP{Topic: "orders", Partition: 0}) {
		t.Errorf("malformed orders list must not throttle anything")
	}
	if !cfg.Throttled(LeaderReplication, cluster.TP{Topic: "audit", Partition: 0}) {
		t.Errorf("well-formed audit entry must survive a sibling parse failure")
	}
	if len(warned) != 2 {
		t.Fatalf("expected 2 warnings (rate and orders), got %d: %v", len(warned), warned)
	}
}
