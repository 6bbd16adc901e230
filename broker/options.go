// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package broker

import (
	"time"

	"github.com/spf13/viper"

	"github.com/repstream/replog/errors"
	"github.com/repstream/replog/quota"
	"github.com/repstream/replog/replica"
	"github.com/repstream/replog/storage"
)

// Options carries the static runtime settings of a broker. The
// dynamic throttle configuration never lives here: it flows through
// the cluster configuration store while the broker runs.
type Options struct {
	// broker id within the cluster
	ID int32 `mapstructure:"id"`

	// throttle measurement window
	Window time.Duration `mapstructure:"window"`

	// idle poll interval of the replication fetchers
	FetchInterval time.Duration `mapstructure:"fetch_interval"`

	// per-partition byte budget of one fetch request
	FetchMaxBytes int `mapstructure:"fetch_max_bytes"`

	// storage segment roll threshold
	SegmentBytes int `mapstructure:"segment_bytes"`

	// achieved-rate reporting interval
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
}

func (o *Options) applyDefaults() {
	if o.Window <= 0 {
		o.Window = quota.DefaultWindow
	}
	if o.FetchInterval <= 0 {
		o.FetchInterval = replica.DefaultFetchInterval
	}
	if o.FetchMaxBytes <= 0 {
		o.FetchMaxBytes = replica.DefaultFetchMaxBytes
	}
	if o.SegmentBytes <= 0 {
		o.SegmentBytes = storage.DefaultSegmentBytes
	}
	if o.MetricsInterval <= 0 {
		o.MetricsInterval = 30 * time.Second
	}
}

// DefaultOptions returns the settings a broker runs with when no
// configuration file is provided.
func DefaultOptions(id int32) Options {
	o := Options{ID: id}
	o.applyDefaults()
	return o
}

// LoadOptions reads broker settings from the given config file, with
// REPLOG_ prefixed environment variables taking precedence.
func LoadOptions(path string) (Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("REPLOG")
	v.AutomaticEnv()

	v.SetDefault("window", quota.DefaultWindow)
	v.SetDefault("fetch_interval", replica.DefaultFetchInterval)
	v.SetDefault("fetch_max_bytes", replica.DefaultFetchMaxBytes)
	v.SetDefault("segment_bytes", storage.DefaultSegmentBytes)
	v.SetDefault("metrics_interval", 30*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return Options{}, errors.Wrapf(errors.InvalidArgument, "reading broker config %q: %s", path, err)
	}
	var o Options
	if err := v.Unmarshal(&o); err != nil {
		return Options{}, errors.Wrapf(errors.InvalidArgument, "decoding broker config %q: %s", path, err)
	}
	o.applyDefaults()
	return o, nil
}
