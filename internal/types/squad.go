package types

import "time"

// GameState is the lifecycle state of the active mission.
type GameState string

const (
	// GameStateAssembling means the countdown is running and check-ins are open.
	GameStateAssembling GameState = "assembling"
	// GameStatePlaying means the mission concluded (everyone checked in, or
	// settlement ran). Terminal until the mission is explicitly cancelled.
	GameStatePlaying GameState = "playing"
)

// ParticipantStatus is the check-in state of a mission participant.
type ParticipantStatus string

const (
	ParticipantPending ParticipantStatus = "pending"
	ParticipantOnline  ParticipantStatus = "online"
)

// Member is a squad roster entry. TotalPenalties is a denormalized cache of
// the member's penalty history sum.
type Member struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar"`
	TotalPenalties int    `json:"totalPenalties"`
}

// Participant links a roster member into the active mission.
// Participants are fixed at mission creation.
type Participant struct {
	MemberID string            `json:"memberId"`
	Status   ParticipantStatus `json:"status"`
}

// Mission is the single active countdown window. At most one exists at a time.
type Mission struct {
	ID              string        `json:"id"`
	GameName        string        `json:"gameName"`
	PenaltyAmount   int           `json:"penaltyAmount"`
	StartTime       time.Time     `json:"startTime"` // absolute deadline
	DurationMinutes int           `json:"durationMinutes"`
	Participants    []Participant `json:"participants"`
	GameState       GameState     `json:"gameState"`
}

// PenaltyRecord is one settled penalty. Immutable once written; history is
// kept most-recent-first and grows without bound.
type PenaltyRecord struct {
	ID         string `json:"id"`
	MemberName string `json:"memberName"` // snapshot of the name at settlement time
	GameName   string `json:"gameName"`
	Amount     int    `json:"amount"`
	Date       string `json:"date"`
	Roast      string `json:"roast,omitempty"`
}

// GameRecord is a completed-game archive entry. Carried for persistence and
// sync compatibility; the core never writes one.
type GameRecord struct {
	ID           string `json:"id"`
	GameName     string `json:"gameName"`
	Date         string `json:"date"`
	Winner       string `json:"winner"`
	Summary      string `json:"summary"`
	PenaltyCount int    `json:"penaltyCount"`
}
