// Package journal is the append-only trade log: every executed trade is
// written here by the publisher, outside the matching critical section.
// It feeds audit and settlement replay, and its max sequence contributes
// to the sequencer floor on startup.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"matchbook/domain/orderbook"
)

type Config struct {
	Dir         string
	SegmentSize int64 // rotate once a segment reaches this many bytes
}

const defaultSegmentSize = 2 * 1024 * 1024

type Journal struct {
	dir      string
	segSize  int64
	current  *segment
	segIndex int
}

// Open creates the directory if needed and appends to the newest segment.
func Open(cfg Config) (*Journal, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	index := 0
	if names, err := segmentFiles(cfg.Dir); err != nil {
		return nil, err
	} else if len(names) > 0 {
		last := names[len(names)-1]
		if _, err := fmt.Sscanf(filepath.Base(last), segmentPattern, &index); err != nil {
			return nil, fmt.Errorf("journal: unrecognized segment %s: %w", last, err)
		}
	}

	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}
	return &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
	}, nil
}

// Append frames and writes one trade, rotating when the segment fills.
func (j *Journal) Append(t orderbook.Trade) error {
	if t.Time == 0 {
		t.Time = time.Now().UnixNano()
	}
	if err := j.current.append(frame(EncodeTrade(t))); err != nil {
		return err
	}
	if j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) Close() error {
	return j.current.close()
}

func (j *Journal) rotate() error {
	_ = j.current.close()
	j.segIndex++
	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

func segmentFiles(dir string) ([]string, error) {
	names, err := filepath.Glob(filepath.Join(dir, "segment-*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
