// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package netmon

import "time"

// =============================================================================
// DESCRIPTORS
// =============================================================================

// Medium is the physical connection medium.
type Medium string

const (
	MediumEthernet Medium = "ethernet"
	MediumWifi     Medium = "wifi"
	MediumCellular Medium = "cellular"
	MediumLowPower Medium = "low-power" // e.g. bluetooth tether
	MediumUnknown  Medium = "unknown"
)

// Generation is the coarse effective connection generation.
type Generation string

const (
	Gen4G     Generation = "4g"
	Gen3G     Generation = "3g"
	Gen2G     Generation = "2g"
	GenSlow2G Generation = "slow-2g"
	GenNone   Generation = "unknown"
)

// Descriptors are the coarse network characteristics a sample captures.
type Descriptors struct {
	Medium       Medium
	Generation   Generation
	RTT          time.Duration
	DownlinkMbps float64
	// SaveData signals a reduced-data preference (configuration-driven).
	SaveData bool
}

// =============================================================================
// QUALITY SCORE
// =============================================================================

// Level is the banded quality level derived from the score.
type Level string

const (
	LevelExcellent Level = "excellent" // score >= 80
	LevelGood      Level = "good"      // score >= 60
	LevelFair      Level = "fair"      // score >= 40
	LevelPoor      Level = "poor"      // score > 0
	LevelOffline   Level = "offline"
)

// scoreBase is the starting constant before bonuses and penalties.
const scoreBase = 50

// Score computes the 0-100 quality heuristic. Offline forces 0
// unconditionally, independent of every other signal.
func Score(online bool, d Descriptors) int {
	if !online {
		return 0
	}

	score := scoreBase

	switch d.Medium {
	case MediumEthernet:
		score += 15
	case MediumWifi:
		score += 8
	case MediumCellular:
		score -= 5
	case MediumLowPower:
		score -= 20
	}

	switch d.Generation {
	case Gen4G:
		score += 10
	case Gen3G:
		// neutral
	case Gen2G:
		score -= 15
	case GenSlow2G:
		score -= 30
	}

	switch rtt := d.RTT; {
	case rtt <= 0:
		// unmeasured, neutral
	case rtt < 50*time.Millisecond:
		score += 15
	case rtt < 150*time.Millisecond:
		score += 8
	case rtt < 300*time.Millisecond:
		// neutral
	case rtt < 600*time.Millisecond:
		score -= 10
	default:
		score -= 20
	}

	switch mbps := d.DownlinkMbps; {
	case mbps <= 0:
		// unmeasured, neutral
	case mbps >= 50:
		score += 15
	case mbps >= 10:
		score += 8
	case mbps >= 2:
		// neutral
	case mbps >= 0.5:
		score -= 10
	default:
		score -= 15
	}

	if d.SaveData {
		score -= 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// LevelFor bands a score into a quality level. Offline wins unconditionally.
func LevelFor(online bool, score int) Level {
	switch {
	case !online:
		return LevelOffline
	case score >= 80:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 40:
		return LevelFair
	case score > 0:
		return LevelPoor
	default:
		return LevelOffline
	}
}

// generationFor derives the coarse generation from measured characteristics.
func generationFor(rtt time.Duration, downlinkMbps float64) Generation {
	switch {
	case rtt <= 0:
		return GenNone
	case rtt < 150*time.Millisecond && downlinkMbps >= 10:
		return Gen4G
	case rtt < 400*time.Millisecond && downlinkMbps >= 2:
		return Gen3G
	case rtt < 1200*time.Millisecond:
		return Gen2G
	default:
		return GenSlow2G
	}
}
