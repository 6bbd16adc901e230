// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package broker_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repstream/replog/broker"
)

func Test_LoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.yaml")
	conf := `
id: 7
window: 5s
fetch_interval: 20ms
fetch_max_bytes: 262144
`
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))

	opts, err := broker.LoadOptions(path)
	require.NoError(t, err)
	require.Equal(t, int32(7), opts.ID)
	require.Equal(t, 5*time.Second, opts.Window)
	require.Equal(t, 20*time.Millisecond, opts.FetchInterval)
	require.Equal(t, 262144, opts.FetchMaxBytes)

	// unset keys fall back to defaults
	require.NotZero(t, opts.SegmentBytes)
	require.NotZero(t, opts.MetricsInterval)
}

func Test_LoadOptionsMissingFile(t *testing.T) {
	_, err := broker.LoadOptions(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
