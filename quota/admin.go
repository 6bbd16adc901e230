// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package quota

import (
	"context"
	"strconv"

	"github.com/repstream/replog/confstore"
	"github.com/repstream/replog/errors"
)

// Write-side helpers for the throttle entries. Validation lives here,
// at the point configuration is written: the reading core only ever
// observes validated positive limits or absence.

func brokerScope(id int32) confstore.Scope {
	return confstore.Scope{
		Kind: confstore.ScopeBroker,
		Name: strconv.FormatInt(int64(id), 10),
	}
}

func topicScope(topic string) confstore.Scope {
	return confstore.Scope{
		Kind: confstore.ScopeTopic,
		Name: topic,
	}
}

// SetRate persists the replication rate limit of a broker. Zero is
// rejected: absence, not zero, expresses "unlimited".
func SetRate(ctx context.Context, store confstore.Store, broker int32, limit uint64) error {
	if limit == 0 {
		return errors.Wrap(errors.InvalidArgument, "throttle rate must be positive")
	}
	return store.Set(ctx, confstore.Entry{
		Scope: brokerScope(broker),
		Key:   RateKey,
		Value: strconv.FormatUint(limit, 10),
	})
}

// ClearRate removes the rate limit of a broker; clearing an absent
// limit is not an error.
func ClearRate(ctx context.Context, store confstore.Store, broker int32) error {
	err := store.Delete(ctx, brokerScope(broker), RateKey)
	if err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

// SetThrottledReplicas persists the throttled replica list of a topic
// for one direction, rejecting text the core could not parse.
func SetThrottledReplicas(ctx context.Context, store confstore.Store, topic string,
	d Direction, value string) error {
	if _, _, err := ParseReplicaList(value); err != nil {
		return err
	}
	return store.Set(ctx, confstore.Entry{
		Scope: topicScope(topic),
		Key:   d.replicasKey(),
		Value: value,
	})
}

// ClearThrottledReplicas removes the throttled replica list of a topic
// for one direction; clearing an absent list is not an error.
func ClearThrottledReplicas(ctx context.Context, store confstore.Store, topic string,
	d Direction) error {
	err := store.Delete(ctx, topicScope(topic), d.replicasKey())
	if err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}
