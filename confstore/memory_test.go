// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package confstore

import (
	"context"
	"testing"
	"time"

	"github.com/repstream/replog/errors"
)

func Test_MemoryStoreCrud(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	topic := Scope{Kind: ScopeTopic, Name: "orders"}
	if _, err := s.Get(ctx, topic, "leader.replication.throttled.replicas"); !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound for missing entry, got %v", err)
	}

	err := s.Set(ctx, Entry{Scope: topic, Key: "leader.replication.throttled.replicas", Value: "0:101"})
	if err != nil {
		t.Fatalf("unexpected error setting entry: %v", err)
	}
	v, err := s.Get(ctx, topic, "leader.replication.throttled.replicas")
	if err != nil || v != "0:101" {
		t.Fatalf("unexpected get result: %q, %v", v, err)
	}

	err = s.Set(ctx, Entry{Scope: Scope{Kind: ScopeTopic, Name: "audit"}, Key: "leader.replication.throttled.replicas", Value: "*"})
	if err != nil {
		t.Fatalf("unexpected error setting entry: %v", err)
	}
	list, err := s.List(ctx, ScopeTopic, "leader.replication.throttled.replicas")
	if err != nil {
		t.Fatalf("unexpected error listing entries: %v", err)
	}
	if len(list) != 2 || list[0].Scope.Name != "audit" || list[1].Scope.Name != "orders" {
		t.Fatalf("unexpected list result: %+v", list)
	}

	if err := s.Delete(ctx, topic, "leader.replication.throttled.replicas"); err != nil {
		t.Fatalf("unexpected error deleting entry: %v", err)
	}
	if err := s.Delete(ctx, topic, "leader.replication.throttled.replicas"); !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound deleting twice, got %v", err)
	}

	if err := s.Set(ctx, Entry{Scope: Scope{Kind: ScopeBroker}, Key: "x"}); !errors.IsInvalidArgument(err) {
		t.Fatalf("expected InvalidArgument for entry without scope name, got %v", err)
	}
}

func Test_MemoryStoreWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	events := make(chan string, 16)
	err := s.Watch(ctx, func(op string, e Entry) {
		events <- op + ":" + e.Scope.Name + ":" + e.Value
	})
	if err != nil {
		t.Fatalf("unexpected error starting watch: %v", err)
	}

	broker := Scope{Kind: ScopeBroker, Name: "101"}
	_ = s.Set(ctx, Entry{Scope: broker, Key: "replication.throttled.rate", Value: "1000"})
	_ = s.Set(ctx, Entry{Scope: broker, Key: "replication.throttled.rate", Value: "2000"})
	_ = s.Delete(ctx, broker, "replication.throttled.rate")

	expect := []string{
		"insert:101:1000",
		"update:101:2000",
		"delete:101:",
	}
	for _, want := range expect {
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("unexpected event: got %q want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %q", want)
		}
	}
}

func Test_MongoConfigValidate(t *testing.T) {
	conf := &MongoConfig{}
	if err := conf.validate(); err != nil {
		t.Fatalf("unexpected error validating empty config: %v", err)
	}
	if conf.Host != "localhost" || conf.Port != "27017" {
		t.Errorf("expected localhost defaults, got %s:%s", conf.Host, conf.Port)
	}
	if conf.Database != "replog" || conf.Collection != defaultCollectionName {
		t.Errorf("expected database and collection defaults, got %s/%s", conf.Database, conf.Collection)
	}

	conf = &MongoConfig{Port: "abc"}
	if err := conf.validate(); err == nil {
		t.Errorf("expected error for invalid port")
	}

	conf = &MongoConfig{Uri: "mongodb://db0:27017", Host: "db0"}
	if err := conf.validate(); err == nil {
		t.Errorf("expected error for uri combined with host")
	}
}
