package models

type RoundStatus string

const (
	RoundActive    RoundStatus = "active"
	RoundWon       RoundStatus = "won"
	RoundLost      RoundStatus = "lost"
	RoundCompleted RoundStatus = "completed"
)

// Round is the persisted record of one play, kept with its full draw metadata
// so the outcome can be re-derived independently after the server seed is
// revealed. Interactive games (crash, mines) stay "active" across several
// requests; single-shot games are written once, already settled.
type Round struct {
	ID       string   `json:"id" redis:"id"`
	UserID   int64    `json:"user_id" redis:"user_id"`
	GameType GameType `json:"game_type" redis:"game_type"`
	Stake    int64    `json:"stake" redis:"stake"`

	Status     RoundStatus `json:"status" redis:"status"`
	Multiplier float64     `json:"multiplier" redis:"multiplier"`
	Payout     int64       `json:"payout" redis:"payout"`

	// Draw metadata. ServerSeedHash is always exposed; the seed itself only
	// after rotation.
	SeedID         string `json:"seed_id" redis:"seed_id"`
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	Nonce          uint64 `json:"nonce" redis:"nonce"`

	// Crash only. Hidden from responses while the round is live.
	CrashPoint float64 `json:"crash_point,omitempty" redis:"crash_point"`

	// Mines only.
	MineCount int   `json:"mine_count,omitempty" redis:"mine_count"`
	Mines     []int `json:"mines,omitempty" redis:"mines"`
	Revealed  []int `json:"revealed,omitempty" redis:"revealed"`

	CreatedAt int64 `json:"created_at" redis:"created_at"`
	EndedAt   int64 `json:"ended_at,omitempty" redis:"ended_at"`
}

// BetResult is the per-bet response shape: the outcome plus everything a
// client needs to verify the draw once the seed is revealed.
type BetResult struct {
	RoundID  string   `json:"round_id"`
	GameType GameType `json:"game_type"`

	Value   float64        `json:"value"`
	Label   string         `json:"label"`
	Details map[string]any `json:"details,omitempty"`

	IsWin      bool    `json:"is_win"`
	Multiplier float64 `json:"multiplier"`
	Stake      int64   `json:"stake"`
	Payout     int64   `json:"payout"`
	Profit     int64   `json:"profit"`
	Balance    int64   `json:"balance"`

	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
}
