// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package storage

import (
	"sync"

	"github.com/repstream/replog/cluster"
	"github.com/repstream/replog/errors"
)

const (
	// segment roll threshold used when none is configured
	DefaultSegmentBytes = 4 * 1024 * 1024
)

// Record is one appended message together with the offset it was
// assigned at append time.
type Record struct {
	Offset int64
	Data   []byte
}

type segment struct {
	baseOffset int64
	records    [][]byte
	bytes      int
}

func (s *segment) endOffset() int64 {
	return s.baseOffset + int64(len(s.records))
}

type partitionLog struct {
	segments []*segment
}

// Log is an in-memory segmented partition log. It stands in for the
// storage engine the replication core collaborates with: the core only
// ever appends replicated bytes and queries end offsets.
type Log struct {
	mu           sync.RWMutex
	parts        map[cluster.TP]*partitionLog
	segmentBytes int
}

func NewLog(segmentBytes int) *Log {
	if segmentBytes <= 0 {
		segmentBytes = DefaultSegmentBytes
	}
	return &Log{
		parts:        make(map[cluster.TP]*partitionLog),
		segmentBytes: segmentBytes,
	}
}

// Append stores one record and returns the offset assigned to it.
// A fresh segment is rolled once the active one crosses the
// configured byte threshold.
func (l *Log) Append(tp cluster.TP, data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, errors.Wrap(errors.InvalidArgument, "cannot append an empty record")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.parts[tp]
	if !ok {
		p = &partitionLog{
			segments: []*segment{{}},
		}
		l.parts[tp] = p
	}
	active := p.segments[len(p.segments)-1]
	if active.bytes >= l.segmentBytes {
		rolled := &segment{baseOffset: active.endOffset()}
		p.segments = append(p.segments, rolled)
		active = rolled
	}
	offset := active.endOffset()
	active.records = append(active.records, data)
	active.bytes += len(data)
	return offset, nil
}

// EndOffset returns the next offset to be assigned for the partition,
// zero when nothing has been appended yet.
func (l *Log) EndOffset(tp cluster.TP) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.parts[tp]
	if !ok {
		return 0
	}
	return p.segments[len(p.segments)-1].endOffset()
}

// SegmentCount reports how many segments back the partition,
// mainly for observability and tests
func (l *Log) SegmentCount(tp cluster.TP) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.parts[tp]
	if !ok {
		return 0
	}
	return len(p.segments)
}

// Read returns whole records starting at the given offset, crossing
// segment boundaries transparently, bounded by maxBytes but always
// delivering at least one record when any is available.
func (l *Log) Read(tp cluster.TP, offset int64, maxBytes int) ([]Record, error) {
	if offset < 0 {
		return nil, errors.Wrapf(errors.InvalidArgument, "negative read offset %d", offset)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.parts[tp]
	if !ok {
		return nil, nil
	}
	end := p.segments[len(p.segments)-1].endOffset()
	if offset > end {
		return nil, errors.Wrapf(errors.InvalidArgument, "read offset %d beyond end offset %d for %s", offset, end, tp)
	}
	var out []Record
	size := 0
	for _, seg := range p.segments {
		if seg.endOffset() <= offset {
			continue
		}
		start := int64(0)
		if offset > seg.baseOffset {
			start = offset - seg.baseOffset
		}
		for i := start; i < int64(len(seg.records)); i++ {
			data := seg.records[i]
			if len(out) > 0 && size+len(data) > maxBytes {
				return out, nil
			}
			out = append(out, Record{
				Offset: seg.baseOffset + i,
				Data:   data,
			})
			size += len(data)
			if size >= maxBytes {
				return out, nil
			}
		}
	}
	return out, nil
}
