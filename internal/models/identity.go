package models

import "github.com/google/uuid"

// BotIdentity points at the bot the console is observing. The config id
// is assigned by the backend on setup; the cycle id is present while a
// cycle is open. Persisted locally so a restart can resume watching an
// already-running bot.
type BotIdentity struct {
	ConfigID uuid.UUID  `json:"configId"`
	CycleID  *uuid.UUID `json:"cycleId,omitempty"`
}

// BotConfigRecord is a backend-side configuration handle as returned
// by the bot_config endpoints. The backend exposes only the id and the
// active flag; parameters are write-only on setup.
type BotConfigRecord struct {
	ID       uuid.UUID `json:"id"`
	IsActive bool      `json:"isActive"`
}
