// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netmon

import (
	"testing"
	"time"
)

// TestScoreBounds verifies combinations of extreme descriptors stay in 0-100.
func TestScoreBounds(t *testing.T) {
	mediums := []Medium{MediumEthernet, MediumWifi, MediumCellular, MediumLowPower, MediumUnknown}
	gens := []Generation{Gen4G, Gen3G, Gen2G, GenSlow2G, GenNone}
	rtts := []time.Duration{0, 10 * time.Millisecond, 100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}
	downlinks := []float64{0, 0.1, 1, 25, 100}

	for _, m := range mediums {
		for _, g := range gens {
			for _, rtt := range rtts {
				for _, dl := range downlinks {
					for _, save := range []bool{false, true} {
						d := Descriptors{Medium: m, Generation: g, RTT: rtt, DownlinkMbps: dl, SaveData: save}
						got := Score(true, d)
						if got < 0 || got > 100 {
							t.Fatalf("Score out of bounds: %d for %+v", got, d)
						}
					}
				}
			}
		}
	}
}

// TestScoreOfflineForcesZero verifies offline overrides even ideal descriptors.
func TestScoreOfflineForcesZero(t *testing.T) {
	ideal := Descriptors{
		Medium:       MediumEthernet,
		Generation:   Gen4G,
		RTT:          10 * time.Millisecond,
		DownlinkMbps: 100,
	}
	if got := Score(false, ideal); got != 0 {
		t.Errorf("offline score = %d, want 0", got)
	}
	if got := LevelFor(false, 95); got != LevelOffline {
		t.Errorf("offline level = %v, want offline", got)
	}
}

// TestScoreOrdering verifies better conditions never score worse.
func TestScoreOrdering(t *testing.T) {
	best := Descriptors{Medium: MediumEthernet, Generation: Gen4G, RTT: 10 * time.Millisecond, DownlinkMbps: 100}
	mid := Descriptors{Medium: MediumWifi, Generation: Gen3G, RTT: 200 * time.Millisecond, DownlinkMbps: 5}
	worst := Descriptors{Medium: MediumLowPower, Generation: GenSlow2G, RTT: 2 * time.Second, DownlinkMbps: 0.1, SaveData: true}

	sBest, sMid, sWorst := Score(true, best), Score(true, mid), Score(true, worst)
	if !(sBest > sMid && sMid > sWorst) {
		t.Errorf("ordering violated: best=%d mid=%d worst=%d", sBest, sMid, sWorst)
	}
}

// TestScoreSaveDataPenalty verifies the reduced-data preference lowers the
// score by exactly its penalty.
func TestScoreSaveDataPenalty(t *testing.T) {
	d := Descriptors{Medium: MediumWifi, Generation: Gen4G, RTT: 100 * time.Millisecond, DownlinkMbps: 20}
	without := Score(true, d)
	d.SaveData = true
	with := Score(true, d)
	if without-with != 10 {
		t.Errorf("save-data penalty = %d, want 10", without-with)
	}
}

func TestLevelBands(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{100, LevelExcellent},
		{80, LevelExcellent},
		{79, LevelGood},
		{60, LevelGood},
		{59, LevelFair},
		{40, LevelFair},
		{39, LevelPoor},
		{1, LevelPoor},
		{0, LevelOffline},
	}
	for _, tt := range tests {
		if got := LevelFor(true, tt.score); got != tt.want {
			t.Errorf("LevelFor(true, %d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestGenerationFor(t *testing.T) {
	tests := []struct {
		rtt  time.Duration
		mbps float64
		want Generation
	}{
		{0, 100, GenNone},
		{50 * time.Millisecond, 50, Gen4G},
		{100 * time.Millisecond, 5, Gen3G},
		{300 * time.Millisecond, 3, Gen3G},
		{300 * time.Millisecond, 1, Gen2G},
		{800 * time.Millisecond, 10, Gen2G},
		{2 * time.Second, 0.1, GenSlow2G},
	}
	for _, tt := range tests {
		if got := generationFor(tt.rtt, tt.mbps); got != tt.want {
			t.Errorf("generationFor(%v, %v) = %v, want %v", tt.rtt, tt.mbps, got, tt.want)
		}
	}
}

func TestMediumForName(t *testing.T) {
	tests := []struct {
		name string
		want Medium
	}{
		{"wlan0", MediumWifi},
		{"wlp3s0", MediumWifi},
		{"wwan0", MediumCellular},
		{"rmnet_data0", MediumCellular},
		{"ppp0", MediumCellular},
		{"bnep0", MediumLowPower},
		{"docker0", MediumUnknown},
	}
	for _, tt := range tests {
		if got := mediumForName(tt.name); got != tt.want {
			t.Errorf("mediumForName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
