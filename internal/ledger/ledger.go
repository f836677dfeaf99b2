package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/types"
	"go.uber.org/zap"
)

// Aggregate keys in the persistence gateway.
const (
	KeyMembers  = "squad_members"
	KeyMission  = "active_mission"
	KeyHistory  = "penalty_history"
	KeyArchives = "game_archives"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrEmptyName      = errors.New("member name must not be empty")
)

// Gateway is the persistence contract for named JSON aggregates.
// Get reports ok=false when the key has never been written.
// Each call is atomic; the ledger writes its aggregates sequentially.
type Gateway interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// SettledPenalty pairs a penalty record with the member it applies to.
type SettledPenalty struct {
	MemberID string
	Record   types.PenaltyRecord
}

// Ledger is the durable aggregate: roster, penalty history and completed-game
// archives. All mutating methods persist through the gateway before returning.
type Ledger struct {
	mu       sync.RWMutex
	gateway  Gateway
	members  []types.Member
	history  []types.PenaltyRecord
	archives []types.GameRecord
}

// New loads the ledger from the gateway. A roster that has never been written
// is seeded with the default squad.
func New(gateway Gateway) (*Ledger, error) {
	l := &Ledger{gateway: gateway}

	ok, err := loadAggregate(gateway, KeyMembers, &l.members)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.members = defaultRoster()
		if err := l.saveAggregate(KeyMembers, l.members); err != nil {
			return nil, err
		}
		logger.Info("Seeded default roster", zap.Int("members", len(l.members)))
	}

	if _, err := loadAggregate(gateway, KeyHistory, &l.history); err != nil {
		return nil, err
	}
	if _, err := loadAggregate(gateway, KeyArchives, &l.archives); err != nil {
		return nil, err
	}

	return l, nil
}

func defaultRoster() []types.Member {
	return []types.Member{
		{ID: "1", Name: "Player One", Avatar: "🎮", TotalPenalties: 0},
		{ID: "2", Name: "Lightning", Avatar: "⚡", TotalPenalties: 0},
	}
}

func loadAggregate(gateway Gateway, key string, out interface{}) (bool, error) {
	value, ok, err := gateway.Get(key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok || value == "" {
		return ok, nil
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// saveAggregate must be called with l.mu held (or before the ledger is shared).
func (l *Ledger) saveAggregate(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := l.gateway.Set(key, string(data)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// Members returns a copy of the roster in insertion order.
func (l *Ledger) Members() []types.Member {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]types.Member(nil), l.members...)
}

// Leaderboard returns the roster sorted by accumulated penalties, highest first.
func (l *Ledger) Leaderboard() []types.Member {
	members := l.Members()
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].TotalPenalties > members[j].TotalPenalties
	})
	return members
}

// MemberByID resolves a roster member.
func (l *Ledger) MemberByID(id string) (types.Member, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.members {
		if m.ID == id {
			return m, true
		}
	}
	return types.Member{}, false
}

// AddMember appends a new roster entry with zero penalties.
func (l *Ledger) AddMember(name, avatar string) (types.Member, error) {
	if name == "" {
		return types.Member{}, ErrEmptyName
	}
	if avatar == "" {
		avatar = "🎮"
	}

	id, err := gonanoid.New()
	if err != nil {
		return types.Member{}, fmt.Errorf("failed to generate member ID: %w", err)
	}

	member := types.Member{ID: id, Name: name, Avatar: avatar, TotalPenalties: 0}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.members = append(l.members, member)
	if err := l.saveAggregate(KeyMembers, l.members); err != nil {
		l.members = l.members[:len(l.members)-1]
		return types.Member{}, err
	}
	return member, nil
}

// UpdateMember edits a member's name and/or avatar. Empty arguments keep the
// current value. Penalty totals are never touched here.
func (l *Ledger) UpdateMember(id, name, avatar string) (types.Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.members {
		if l.members[i].ID != id {
			continue
		}
		prev := l.members[i]
		if name != "" {
			l.members[i].Name = name
		}
		if avatar != "" {
			l.members[i].Avatar = avatar
		}
		if err := l.saveAggregate(KeyMembers, l.members); err != nil {
			l.members[i] = prev
			return types.Member{}, err
		}
		return l.members[i], nil
	}
	return types.Member{}, ErrMemberNotFound
}

// RemoveMember deletes a roster entry. History entries naming the member are
// kept; a mission in flight will skip the deleted member at settlement.
func (l *Ledger) RemoveMember(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.members {
		if l.members[i].ID != id {
			continue
		}
		prev := append([]types.Member(nil), l.members...)
		l.members = append(l.members[:i:i], l.members[i+1:]...)
		if err := l.saveAggregate(KeyMembers, l.members); err != nil {
			l.members = prev
			return err
		}
		return nil
	}
	return ErrMemberNotFound
}

// History returns the penalty history, most recent first. limit <= 0 returns
// everything.
func (l *Ledger) History(limit int) []types.PenaltyRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := append([]types.PenaltyRecord(nil), l.history...)
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	return history
}

// Archives returns the completed-game archives, most recent first.
func (l *Ledger) Archives(limit int) []types.GameRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	archives := append([]types.GameRecord(nil), l.archives...)
	if limit > 0 && limit < len(archives) {
		archives = archives[:limit]
	}
	return archives
}

// ApplySettlement prepends the settled records to history and increments each
// member's penalty total, then persists roster and history sequentially.
// Entries referencing members no longer on the roster still record history;
// the settlement engine is expected to have resolved names beforehand.
func (l *Ledger) ApplySettlement(entries []SettledPenalty) error {
	if len(entries) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range entries {
		l.history = append([]types.PenaltyRecord{entry.Record}, l.history...)
		for i := range l.members {
			if l.members[i].ID == entry.MemberID {
				l.members[i].TotalPenalties += entry.Record.Amount
				break
			}
		}
	}

	if err := l.saveAggregate(KeyMembers, l.members); err != nil {
		return err
	}
	return l.saveAggregate(KeyHistory, l.history)
}

// ReplaceAll overwrites roster, history and archives from a sync snapshot.
// This is the destructive sync-link import; callers gate it behind an
// explicit confirmation.
func (l *Ledger) ReplaceAll(members []types.Member, history []types.PenaltyRecord, archives []types.GameRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevMembers, prevHistory, prevArchives := l.members, l.history, l.archives
	l.members = append([]types.Member(nil), members...)
	l.history = append([]types.PenaltyRecord(nil), history...)
	l.archives = append([]types.GameRecord(nil), archives...)

	for _, save := range []struct {
		key   string
		value interface{}
	}{
		{KeyMembers, l.members},
		{KeyHistory, l.history},
		{KeyArchives, l.archives},
	} {
		if err := l.saveAggregate(save.key, save.value); err != nil {
			l.members, l.history, l.archives = prevMembers, prevHistory, prevArchives
			return err
		}
	}
	return nil
}

// VerifyTotals checks the denormalized penalty totals against the history sum
// for every member. Matching is by the name snapshot stored on each record,
// so the check is meaningful as long as names are stable.
func (l *Ledger) VerifyTotals() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sums := make(map[string]int)
	for _, record := range l.history {
		sums[record.MemberName] += record.Amount
	}
	for _, m := range l.members {
		if sums[m.Name] != m.TotalPenalties {
			return fmt.Errorf("totals mismatch for %s: cached=%d history=%d",
				m.Name, m.TotalPenalties, sums[m.Name])
		}
	}
	return nil
}
