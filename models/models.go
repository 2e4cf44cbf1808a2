// models/models.go
package models

import (
	"fmt"
	"time"
)

// RoomStatus is the coarse lifecycle phase of a room.
type RoomStatus int

const (
	RoomStatusIdle RoomStatus = iota
	RoomStatusChangingBeatmap
	RoomStatusPlaying
)

func (s RoomStatus) String() string {
	switch s {
	case RoomStatusIdle:
		return "IDLE"
	case RoomStatusChangingBeatmap:
		return "CHANGING_BEATMAP"
	case RoomStatusPlaying:
		return "PLAYING"
	}
	return fmt.Sprintf("RoomStatus(%d)", int(s))
}

type PlayerStatus int

const (
	PlayerStatusNotReady PlayerStatus = iota
	PlayerStatusReady
	PlayerStatusNoMap
	PlayerStatusPlaying
)

func (s PlayerStatus) Valid() bool {
	return s >= PlayerStatusNotReady && s <= PlayerStatusPlaying
}

type TeamMode int

const (
	TeamModeHeadToHead TeamMode = iota
	TeamModeTeamVsTeam
)

func (m TeamMode) Valid() bool {
	return m == TeamModeHeadToHead || m == TeamModeTeamVsTeam
}

type WinCondition int

const (
	WinConditionScoreV1 WinCondition = iota
	WinConditionAccuracy
	WinConditionMaxCombo
	WinConditionScoreV2
)

func (c WinCondition) Valid() bool {
	return c >= WinConditionScoreV1 && c <= WinConditionScoreV2
}

// Team is only meaningful when the room plays TEAM_VS_TEAM.
type Team int

const (
	TeamNone Team = iota
	TeamRed
	TeamBlue
)

func (t Team) Valid() bool {
	return t >= TeamNone && t <= TeamBlue
}

// Beatmap identifies the map a room is going to play. MD5 is the checksum
// clients use to find the file locally.
type Beatmap struct {
	MD5          string `json:"md5"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Creator      string `json:"creator"`
	Version      string `json:"version"`
	BeatmapSetID string `json:"beatmapSetId,omitempty"`
}

// MaxChecksumLength is the length of a full md5 hex digest.
const MaxChecksumLength = 32

// ValidChecksum reports whether s is a hex string of 1 to 32 characters.
// The checksum ends up in mirror URLs and cache keys.
func ValidChecksum(s string) bool {
	if s == "" || len(s) > MaxChecksumLength {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Validate checks a finalized beatmap. Only the checksum is required, the
// descriptive fields are whatever the client sent.
func (b *Beatmap) Validate() error {
	switch {
	case b.MD5 == "":
		return fmt.Errorf("beatmap md5 is required")
	case !ValidChecksum(b.MD5):
		return fmt.Errorf("beatmap md5 must be at most %d hex characters", MaxChecksumLength)
	}
	return nil
}

// ModSettings is used both room-wide and per player.
type ModSettings struct {
	Mods            string  `json:"mods"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	FLFollowDelay   float64 `json:"flFollowDelay"`
}

func DefaultModSettings() ModSettings {
	return ModSettings{
		Mods:            "",
		SpeedMultiplier: 1.0,
		FLFollowDelay:   1.12,
	}
}

type GameplaySettings struct {
	IsRemoveSliderLock             bool `json:"isRemoveSliderLock"`
	IsFreeMod                      bool `json:"isFreeMod"`
	AllowForceDifficultyStatistics bool `json:"allowForceDifficultyStatistics"`
}

func DefaultGameplaySettings() GameplaySettings {
	return GameplaySettings{
		IsRemoveSliderLock:             false,
		IsFreeMod:                      true,
		AllowForceDifficultyStatistics: false,
	}
}

// ScoreSubmission is the final result one participant reports for a match.
type ScoreSubmission struct {
	UID       int64  `json:"uid"`
	Username  string `json:"username"`
	ModString string `json:"modstring"`
	Score     int64  `json:"score"`
	MaxCombo  int    `json:"maxCombo"`
	Geki      int    `json:"geki"`
	Perfect   int    `json:"perfect"`
	Katu      int    `json:"katu"`
	Good      int    `json:"good"`
	Bad       int    `json:"bad"`
	Miss      int    `json:"miss"`
}

func (s *ScoreSubmission) Validate() error {
	if s.Score < 0 || s.MaxCombo < 0 {
		return fmt.Errorf("score and max combo must not be negative")
	}
	if s.Geki < 0 || s.Perfect < 0 || s.Katu < 0 || s.Good < 0 || s.Bad < 0 || s.Miss < 0 {
		return fmt.Errorf("hit counts must not be negative")
	}
	return nil
}

// LiveScoreData is an interim snapshot streamed during a match. UID and
// Username are filled in by the server before relaying.
type LiveScoreData struct {
	UID      int64   `json:"uid,omitempty"`
	Username string  `json:"username,omitempty"`
	Score    int64   `json:"score"`
	Combo    int     `json:"combo"`
	Accuracy float64 `json:"accuracy"`
	IsAlive  bool    `json:"isAlive"`
}

// Account is what the account collaborator knows about a player.
type Account struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Restricted bool   `json:"restricted"`
}

// MatchResult is a score submission handed to the ranking store once the
// whole room has submitted.
type MatchResult struct {
	RoomID      int64           `json:"room_id"`
	BeatmapHash string          `json:"beatmap_hash"`
	Score       ScoreSubmission `json:"score"`
	PlayedAt    time.Time       `json:"played_at"`
}

// PlayerInfo is the public view of a roster entry.
type PlayerInfo struct {
	UID      int64        `json:"uid"`
	Username string       `json:"username"`
	Status   PlayerStatus `json:"status"`
	Team     Team         `json:"team"`
	Mods     ModSettings  `json:"mods"`
}

type HostInfo struct {
	UID      int64  `json:"uid"`
	Username string `json:"username"`
}

// RoomInfo is the full room snapshot. Host and SessionID are only set on
// the initialConnection message.
type RoomInfo struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Host             *HostInfo        `json:"host,omitempty"`
	MaxPlayers       int              `json:"maxPlayers"`
	IsLocked         bool             `json:"isLocked"`
	Beatmap          *Beatmap         `json:"beatmap"`
	Mods             ModSettings      `json:"mods"`
	GameplaySettings GameplaySettings `json:"gameplaySettings"`
	TeamMode         TeamMode         `json:"teamMode"`
	WinCondition     WinCondition     `json:"winCondition"`
	Players          []PlayerInfo     `json:"players"`
	PlayerCount      int              `json:"playerCount"`
	PlayerNames      string           `json:"playerNames"`
	Status           RoomStatus       `json:"status"`
	SessionID        string           `json:"sessionId,omitempty"`
}
