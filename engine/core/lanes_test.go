package core

import (
	"sync/atomic"
	"testing"
)

func TestLaneRange(t *testing.T) {
	tests := []struct {
		name      string
		lane      int
		laneCount int
		total     int
		lo, hi    int
	}{
		{"even split lane 0", 0, 4, 8, 0, 2},
		{"even split lane 3", 3, 4, 8, 6, 8},
		{"remainder to low lanes", 0, 4, 10, 0, 3},
		{"remainder skips high lanes", 3, 4, 10, 8, 10},
		{"fewer items than lanes", 2, 4, 2, 2, 2},
		{"single lane owns all", 0, 1, 7, 0, 7},
		{"zero total", 1, 4, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := LaneRange(tt.lane, tt.laneCount, tt.total)
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("LaneRange(%d, %d, %d) = [%d, %d), want [%d, %d)",
					tt.lane, tt.laneCount, tt.total, lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestLaneRangeCoversTotal(t *testing.T) {
	const laneCount, total = 4, 13
	covered := 0
	prevHi := 0
	for lane := 0; lane < laneCount; lane++ {
		lo, hi := LaneRange(lane, laneCount, total)
		if lo != prevHi {
			t.Errorf("lane %d starts at %d, want contiguous %d", lane, lo, prevHi)
		}
		covered += hi - lo
		prevHi = hi
	}
	if covered != total {
		t.Errorf("lanes cover %d items, want %d", covered, total)
	}
}

func TestBarrierRendezvous(t *testing.T) {
	const lanes = 4
	const rounds = 50
	b := NewBarrier(lanes)
	var phase atomic.Int64
	var mismatches atomic.Int64

	lanesRun := NewLanes(lanes)
	lanesRun.Run(func(lane int) {
		for r := 0; r < rounds; r++ {
			if lane == 0 {
				phase.Store(int64(r))
			}
			b.Sync()
			if phase.Load() != int64(r) {
				mismatches.Add(1)
			}
			b.Sync()
		}
	})
	if n := mismatches.Load(); n != 0 {
		t.Errorf("%d lanes observed a stale phase after the barrier", n)
	}
}

func TestLanesRunAllLanes(t *testing.T) {
	l := NewLanes(MaxLanes)
	var seen [MaxLanes]atomic.Bool
	l.Run(func(lane int) {
		seen[lane].Store(true)
	})
	for lane := range seen {
		if !seen[lane].Load() {
			t.Errorf("lane %d never entered the body", lane)
		}
	}
}
