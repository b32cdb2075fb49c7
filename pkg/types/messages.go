package types

import "encoding/json"

// Client -> Server
//
// join_room:
//   room: string
//   player: { id, name, pronouns }
//
// signal:
//   room: string
//   target: string          // connection id of the intended peer
//   signal: <opaque>        // SDP offer/answer or ICE candidate, relayed verbatim
//
// media_toggle:
//   kind: "audio" | "video"
//   enabled: boolean
//
// pass_turn:
//   room: string

const (
	EvtJoinRoom    = "join_room"
	EvtSignal      = "signal"
	EvtMediaToggle = "media_toggle"
	EvtPassTurn    = "pass_turn"
)

// Server -> Client
//
// you_are:           { connection_id, name }    // joiner only
// players_update:    { players: [PlayerView] }  // whole room, sanitized
// signal:            { from, signal }           // target only
// peer_media_toggle: { from, kind, enabled }    // rest of room
// turn_update:       { turn, turn_player, turn_phase }
// error:             { error }

const (
	EvtYouAre          = "you_are"
	EvtPlayersUpdate   = "players_update"
	EvtPeerMediaToggle = "peer_media_toggle"
	EvtTurnUpdate      = "turn_update"
	EvtError           = "error"
)

// PlayerInfo is the identity a client presents when joining.
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Pronouns string `json:"pronouns"`
}

type ClientEvent struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Player  PlayerInfo      `json:"player,omitempty"`
	Target  string          `json:"target,omitempty"`
	Signal  json.RawMessage `json:"signal,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Enabled bool            `json:"enabled,omitempty"`
}

type ServerEvent struct {
	Type         string          `json:"type"`
	ConnectionID string          `json:"connection_id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Players      []PlayerView    `json:"players,omitempty"`
	From         string          `json:"from,omitempty"`
	Signal       json.RawMessage `json:"signal,omitempty"`
	Kind         string          `json:"kind,omitempty"`
	Enabled      *bool           `json:"enabled,omitempty"`
	Turn         *int            `json:"turn,omitempty"`
	TurnPlayer   *int            `json:"turn_player,omitempty"`
	TurnPhase    string          `json:"turn_phase,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// PlayerView is the sanitized egress shape shared by the websocket
// broadcasts and the REST room snapshot. Name and Pronouns are always
// HTML-escaped before they land here.
type PlayerView struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name"`
	Pronouns     string `json:"pronouns"`
	TurnOrder    int    `json:"turn_order"`
	Life         int    `json:"life_points"`
	Poison       int    `json:"poison_counters"`
	Rad          int    `json:"rad_counters"`
	Experience   int    `json:"experience_counters"`
	Energy       int    `json:"energy_counters"`
	Storm        int    `json:"storm_counters"`
	AudioEnabled bool   `json:"audio_enabled"`
	VideoEnabled bool   `json:"video_enabled"`
}

// RoomView is the REST snapshot of a room.
type RoomView struct {
	Code       string       `json:"id"`
	Players    []PlayerView `json:"players"`
	Turn       int          `json:"turn"`
	TurnPlayer int          `json:"turn_player"`
	TurnPhase  string       `json:"turn_phase"`
	Started    bool         `json:"has_started"`
}
