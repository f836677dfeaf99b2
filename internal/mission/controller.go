package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/types"
	"go.uber.org/zap"
)

var (
	ErrNoParticipants       = errors.New("mission requires at least one participant")
	ErrEmptyGameName        = errors.New("game name must not be empty")
	ErrInvalidDuration      = errors.New("duration must be a positive number of minutes")
	ErrInvalidPenalty       = errors.New("penalty amount must be positive")
	ErrSettlementInProgress = errors.New("settlement in progress")
)

// Notifier receives mission lifecycle events (for WebSocket broadcast).
type Notifier func(event string, data interface{})

// Controller owns the single active mission: creation, check-ins, the
// countdown, and triggering settlement exactly once at expiry.
type Controller struct {
	mu       sync.Mutex
	active   *types.Mission
	settling bool

	ledger  *ledger.Ledger
	gateway ledger.Gateway
	engine  *Engine
	notify  Notifier
	now     func() time.Time
}

// NewController restores the active mission (if any) from the gateway.
// notify may be nil.
func NewController(l *ledger.Ledger, gateway ledger.Gateway, engine *Engine, notify Notifier) (*Controller, error) {
	c := &Controller{
		ledger:  l,
		gateway: gateway,
		engine:  engine,
		notify:  notify,
		now:     time.Now,
	}

	value, ok, err := gateway.Get(ledger.KeyMission)
	if err != nil {
		return nil, fmt.Errorf("failed to load active mission: %w", err)
	}
	if ok && value != "" {
		if err := json.Unmarshal([]byte(value), &c.active); err != nil {
			logger.Warn("Discarding unreadable active mission", zap.Error(err))
			c.active = nil
		}
	}

	return c, nil
}

// CreateMission validates and installs a new active mission, replacing any
// prior mission unconditionally.
func (c *Controller) CreateMission(gameName string, penaltyAmount, durationMinutes int, memberIDs []string) (types.Mission, error) {
	if len(memberIDs) == 0 {
		return types.Mission{}, ErrNoParticipants
	}
	if gameName == "" {
		return types.Mission{}, ErrEmptyGameName
	}
	if durationMinutes <= 0 {
		return types.Mission{}, ErrInvalidDuration
	}
	if penaltyAmount <= 0 {
		return types.Mission{}, ErrInvalidPenalty
	}

	id, err := gonanoid.New()
	if err != nil {
		return types.Mission{}, fmt.Errorf("failed to generate mission ID: %w", err)
	}

	participants := make([]types.Participant, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		participants = append(participants, types.Participant{
			MemberID: memberID,
			Status:   types.ParticipantPending,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settling {
		return types.Mission{}, ErrSettlementInProgress
	}

	mission := types.Mission{
		ID:              id,
		GameName:        gameName,
		PenaltyAmount:   penaltyAmount,
		StartTime:       c.now().Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
		Participants:    participants,
		GameState:       types.GameStateAssembling,
	}
	c.active = &mission
	if err := c.persistMissionLocked(); err != nil {
		return types.Mission{}, err
	}

	logger.Info("Mission created",
		zap.String("mission_id", mission.ID),
		zap.String("game", mission.GameName),
		zap.Int("participants", len(participants)),
		zap.Int("penalty", penaltyAmount))
	c.emit("mission_created", mission)
	return mission, nil
}

// CheckIn flips a pending participant to online. Silently ignored when there
// is no active mission, the countdown is over, or the member is not a
// participant. When the last participant checks in the mission transitions to
// playing immediately and no settlement will run.
func (c *Controller) CheckIn(memberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.GameState != types.GameStateAssembling {
		return
	}

	found := false
	allOnline := true
	for i := range c.active.Participants {
		p := &c.active.Participants[i]
		if p.MemberID == memberID {
			p.Status = types.ParticipantOnline
			found = true
		}
		if p.Status != types.ParticipantOnline {
			allOnline = false
		}
	}
	if !found {
		return
	}

	if allOnline {
		c.active.GameState = types.GameStatePlaying
		logger.Info("All participants checked in, countdown abandoned",
			zap.String("mission_id", c.active.ID))
	}
	if err := c.persistMissionLocked(); err != nil {
		logger.Error("Failed to persist mission after check-in", zap.Error(err))
	}

	c.emit("member_checked_in", map[string]interface{}{"memberId": memberID})
	if allOnline {
		c.emit("mission_ready", *c.active)
	}
}

// CancelMission clears the active mission without penalties or history
// entries. Rejected while a settlement is in flight.
func (c *Controller) CancelMission() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settling {
		return ErrSettlementInProgress
	}
	if c.active == nil {
		return nil
	}

	cancelled := c.active.ID
	c.active = nil
	if err := c.persistMissionLocked(); err != nil {
		return err
	}

	logger.Info("Mission cancelled", zap.String("mission_id", cancelled))
	c.emit("mission_cancelled", map[string]interface{}{"missionId": cancelled})
	return nil
}

// Active returns a copy of the active mission and the remaining countdown.
func (c *Controller) Active() (types.Mission, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return types.Mission{}, 0, false
	}
	mission := *c.active
	mission.Participants = append([]types.Participant(nil), c.active.Participants...)
	return mission, remaining(mission.StartTime, c.now()), true
}

// remaining is always derived from the absolute deadline so that delayed or
// out-of-order ticks self-correct.
func remaining(startTime, now time.Time) time.Duration {
	r := startTime.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// Tick advances the countdown. When the deadline has passed and the mission
// is still assembling it triggers settlement, at most once per mission: ticks
// observing an in-flight settlement are ignored.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	if c.active == nil || c.active.GameState != types.GameStateAssembling {
		c.mu.Unlock()
		return
	}
	if remaining(c.active.StartTime, now) > 0 {
		c.mu.Unlock()
		return
	}
	if c.settling {
		// A previous tick already fired expiry for this mission.
		c.mu.Unlock()
		return
	}
	c.settling = true
	mission := *c.active
	pending := make([]types.Participant, 0, len(mission.Participants))
	for _, p := range mission.Participants {
		if p.Status == types.ParticipantPending {
			pending = append(pending, p)
		}
	}
	c.mu.Unlock()

	logger.Info("Mission expired, starting settlement",
		zap.String("mission_id", mission.ID),
		zap.Int("pending", len(pending)))

	entries := c.engine.Settle(context.Background(), mission, pending)
	if err := c.ledger.ApplySettlement(entries); err != nil {
		logger.Error("Failed to apply settlement to ledger", zap.Error(err))
	}

	c.mu.Lock()
	if c.active != nil && c.active.ID == mission.ID {
		c.active.GameState = types.GameStatePlaying
		if err := c.persistMissionLocked(); err != nil {
			logger.Error("Failed to persist mission after settlement", zap.Error(err))
		}
	}
	c.settling = false
	c.mu.Unlock()

	c.emit("settlement_completed", map[string]interface{}{
		"missionId": mission.ID,
		"penalized": len(entries),
	})
}

// Run drives the countdown at one tick per second until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(c.now())
		}
	}
}

// persistMissionLocked writes the active mission aggregate ("null" when
// empty). Must be called with c.mu held.
func (c *Controller) persistMissionLocked() error {
	data, err := json.Marshal(c.active)
	if err != nil {
		return fmt.Errorf("failed to encode active mission: %w", err)
	}
	if err := c.gateway.Set(ledger.KeyMission, string(data)); err != nil {
		return fmt.Errorf("failed to persist active mission: %w", err)
	}
	return nil
}

func (c *Controller) emit(event string, data interface{}) {
	if c.notify != nil {
		c.notify(event, data)
	}
}
