package mission

import (
	"context"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/roast"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/types"
	"go.uber.org/zap"
)

const settlementDateFormat = "2006-01-02 15:04:05"

// Engine reconciles the still-pending participants of an expired mission:
// one penalty record and one total increment per pending member, with a
// roast attached to each record.
type Engine struct {
	ledger   *ledger.Ledger
	provider roast.Provider
	now      func() time.Time
}

func NewEngine(l *ledger.Ledger, provider roast.Provider) *Engine {
	return &Engine{ledger: l, provider: provider, now: time.Now}
}

// Settle builds the penalty entries for the pending participants, in their
// original participant order. Provider calls run sequentially; a failed
// remote call degrades that one roast, never the loop. Participants whose
// member was deleted mid-mission are skipped without side effects.
func (e *Engine) Settle(ctx context.Context, mission types.Mission, pending []types.Participant) []ledger.SettledPenalty {
	entries := make([]ledger.SettledPenalty, 0, len(pending))

	for _, p := range pending {
		member, ok := e.ledger.MemberByID(p.MemberID)
		if !ok {
			logger.Warn("Skipping settlement for deleted member",
				zap.String("member_id", p.MemberID),
				zap.String("mission_id", mission.ID))
			continue
		}

		text := e.provider.Roast(ctx, member.Name, mission.GameName, mission.PenaltyAmount)

		id, err := gonanoid.New()
		if err != nil {
			logger.Error("Failed to generate penalty record ID",
				zap.Error(err), zap.String("member_id", member.ID))
			continue
		}

		entries = append(entries, ledger.SettledPenalty{
			MemberID: member.ID,
			Record: types.PenaltyRecord{
				ID:         id,
				MemberName: member.Name,
				GameName:   mission.GameName,
				Amount:     mission.PenaltyAmount,
				Date:       e.now().Format(settlementDateFormat),
				Roast:      text,
			},
		})
	}

	return entries
}
