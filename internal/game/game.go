package game

import (
	"errors"
	"strings"

	"github.com/tolarian/cardtable-backend/internal/sanitize"
	"github.com/tolarian/cardtable-backend/internal/words"
	"github.com/tolarian/cardtable-backend/pkg/types"
)

var ErrNoPlayers = errors.New("no players in room")
var ErrAlreadyStarted = errors.New("room already started")

type Phase string

const (
	PhaseBegin  Phase = "BEGIN"
	PhaseMain1  Phase = "M1"
	PhaseCombat Phase = "COMBAT"
	PhaseMain2  Phase = "M2"
	PhaseEnd    Phase = "END"
)

const (
	MediaAudio = "audio"
	MediaVideo = "video"
)

const StartingLife = 40

// Player is a persistent participant identity within one room. ID is
// chosen by the client and survives reconnects; ConnID is the transport
// handle of the current live connection and is empty while the player
// is disconnected-but-pending.
type Player struct {
	ID       string
	ConnID   string
	Name     string // raw; escaped on egress only
	Pronouns string

	TurnOrder int

	Life       int
	Poison     int
	Rad        int
	Experience int
	Energy     int
	Storm      int

	AudioEnabled bool
	VideoEnabled bool
}

// Room holds the shared session state for one code. Players is kept in
// insertion order, which is also turn order. All mutation happens from
// the room's owning session goroutine, so there is no lock here.
type Room struct {
	Code        string
	Players     []*Player
	TurnPointer int
	Turn        int
	TurnPhase   Phase
	Started     bool
}

func NewRoom(code string) *Room {
	return &Room{
		Code:      code,
		Players:   []*Player{},
		TurnPhase: PhaseBegin,
	}
}

// placeholderName is swappable so tests can pin the generated name.
var placeholderName = words.PlaceholderName

type JoinResult struct {
	Player      *Player
	Reconnected bool
	PrevConnID  string // previous live connection, if the player had one
}

// Join resolves info.ID against the room. A known ID is a reconnect:
// only ConnID is rebound, everything else (turn order, counters, media
// flags, name) is preserved untouched. An unknown ID appends a new
// player with the counter defaults and the next turn-order slot. A
// blank name is replaced with a generated placeholder and the pronouns
// are cleared.
func (r *Room) Join(connID string, info types.PlayerInfo) JoinResult {
	for _, p := range r.Players {
		if p.ID == info.ID {
			prev := p.ConnID
			p.ConnID = connID
			return JoinResult{Player: p, Reconnected: true, PrevConnID: prev}
		}
	}

	name, pronouns := info.Name, info.Pronouns
	if strings.TrimSpace(name) == "" {
		name = placeholderName()
		pronouns = ""
	}

	p := &Player{
		ID:           info.ID,
		ConnID:       connID,
		Name:         name,
		Pronouns:     pronouns,
		TurnOrder:    len(r.Players) + 1,
		Life:         StartingLife,
		AudioEnabled: true,
		VideoEnabled: true,
	}
	r.Players = append(r.Players, p)
	return JoinResult{Player: p}
}

func (r *Room) PlayerByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) PlayerByConn(connID string) *Player {
	if connID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// DisconnectConn clears the live connection of whichever player owns
// connID and returns that player, or nil if no player owns it.
func (r *Room) DisconnectConn(connID string) *Player {
	p := r.PlayerByConn(connID)
	if p == nil {
		return nil
	}
	p.ConnID = ""
	return p
}

// Remove deletes the player with the given ID, keeping TurnPointer in
// range: it follows the same player when an earlier slot disappears and
// wraps to 0 when it would fall off the end.
func (r *Room) Remove(playerID string) bool {
	for i, p := range r.Players {
		if p.ID != playerID {
			continue
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		if i < r.TurnPointer {
			r.TurnPointer--
		}
		if r.TurnPointer >= len(r.Players) {
			r.TurnPointer = 0
		}
		return true
	}
	return false
}

type TurnState struct {
	Turn       int
	TurnPlayer int
	Phase      Phase
}

// AdvanceTurn moves the circular pointer to the next player and resets
// the phase to BEGIN. Phase progression within a turn is upstream
// game-rule scope and is not modeled here.
func (r *Room) AdvanceTurn() (TurnState, error) {
	if len(r.Players) == 0 {
		return TurnState{}, ErrNoPlayers
	}
	r.TurnPointer = (r.TurnPointer + 1) % len(r.Players)
	r.Turn++
	r.TurnPhase = PhaseBegin
	return TurnState{Turn: r.Turn, TurnPlayer: r.TurnPointer, Phase: r.TurnPhase}, nil
}

// Start is a one-way transition; there is no unstart.
func (r *Room) Start() error {
	if r.Started {
		return ErrAlreadyStarted
	}
	r.Started = true
	return nil
}

// SetMedia records the self-reported media state of the player behind
// connID. Returns nil when the connection owns no player or the kind is
// not a known media kind.
func (r *Room) SetMedia(connID, kind string, enabled bool) *Player {
	p := r.PlayerByConn(connID)
	if p == nil {
		return nil
	}
	switch kind {
	case MediaAudio:
		p.AudioEnabled = enabled
	case MediaVideo:
		p.VideoEnabled = enabled
	default:
		return nil
	}
	return p
}

// View is the sanitized egress shape of a player. Raw Name/Pronouns
// never leave the server.
func (p *Player) View() types.PlayerView {
	return types.PlayerView{
		ID:           p.ID,
		ConnectionID: p.ConnID,
		Name:         sanitize.Escape(p.Name),
		Pronouns:     sanitize.Escape(p.Pronouns),
		TurnOrder:    p.TurnOrder,
		Life:         p.Life,
		Poison:       p.Poison,
		Rad:          p.Rad,
		Experience:   p.Experience,
		Energy:       p.Energy,
		Storm:        p.Storm,
		AudioEnabled: p.AudioEnabled,
		VideoEnabled: p.VideoEnabled,
	}
}

func (r *Room) SanitizedPlayers() []types.PlayerView {
	views := make([]types.PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		views = append(views, p.View())
	}
	return views
}

func (r *Room) Snapshot() types.RoomView {
	return types.RoomView{
		Code:       r.Code,
		Players:    r.SanitizedPlayers(),
		Turn:       r.Turn,
		TurnPlayer: r.TurnPointer,
		TurnPhase:  string(r.TurnPhase),
		Started:    r.Started,
	}
}
