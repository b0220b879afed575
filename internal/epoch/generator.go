// Package epoch turns an epoch definition into the snapshot boundaries at
// which balances are sampled. Generation is seeded and deterministic so that
// a settlement run can be reproduced and audited.
package epoch

import (
	"fmt"
	"math/rand"
	"sort"
)

// Epoch defines one settlement window.
type Epoch struct {
	ID            string // run identifier, e.g. "2026-08"
	StartBlock    uint64 // first block of the window, inclusive
	EndBlock      uint64 // last block of the window, inclusive
	StartTime     int64  // Unix seconds of StartBlock
	EndTime       int64  // Unix seconds of EndBlock
	Seed          int64  // snapshot-selection seed, published with the results
	SnapshotCount int    // number of snapshot boundaries to draw
}

// Snapshot is one sampled boundary.
type Snapshot struct {
	BlockNumber uint64
	Timestamp   int64
}

// Snapshots draws SnapshotCount distinct blocks from the epoch window,
// ascending. The same epoch definition always yields the same snapshots.
func Snapshots(e Epoch) ([]Snapshot, error) {
	if e.SnapshotCount <= 0 {
		return nil, fmt.Errorf("snapshot count must be positive, got %d", e.SnapshotCount)
	}
	if e.EndBlock < e.StartBlock {
		return nil, fmt.Errorf("epoch window inverted: start %d > end %d", e.StartBlock, e.EndBlock)
	}
	span := e.EndBlock - e.StartBlock + 1
	if uint64(e.SnapshotCount) > span {
		return nil, fmt.Errorf("cannot draw %d distinct blocks from a %d-block window", e.SnapshotCount, span)
	}

	rng := rand.New(rand.NewSource(e.Seed))
	chosen := make(map[uint64]struct{}, e.SnapshotCount)
	blocks := make([]uint64, 0, e.SnapshotCount)
	for len(blocks) < e.SnapshotCount {
		b := e.StartBlock + uint64(rng.Int63n(int64(span)))
		if _, dup := chosen[b]; dup {
			continue
		}
		chosen[b] = struct{}{}
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	snaps := make([]Snapshot, len(blocks))
	for i, b := range blocks {
		snaps[i] = Snapshot{
			BlockNumber: b,
			Timestamp:   interpolateTime(e, b),
		}
	}
	return snaps, nil
}

// interpolateTime estimates a block's timestamp linearly within the window.
func interpolateTime(e Epoch, block uint64) int64 {
	if e.EndBlock == e.StartBlock {
		return e.StartTime
	}
	offset := block - e.StartBlock
	span := e.EndBlock - e.StartBlock
	return e.StartTime + int64(offset)*(e.EndTime-e.StartTime)/int64(span)
}

// Blocks is a convenience accessor returning just the boundary blocks.
func Blocks(snaps []Snapshot) []uint64 {
	blocks := make([]uint64, len(snaps))
	for i, s := range snaps {
		blocks[i] = s.BlockNumber
	}
	return blocks
}
