package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"khata/internal/core"
)

// EntryAppliedMessage is published after a ledger delta commits. It carries
// everything the audit-export worker needs to append a register row without
// reading the database back.
type EntryAppliedMessage struct {
	ID          string    `json:"id"`
	Society     string    `json:"society"`
	Category    string    `json:"category"`
	Account     string    `json:"account"`
	AmountPaise int64     `json:"amount_paise"`
	Side        string    `json:"side"`
	Effect      string    `json:"effect"`
	Day         string    `json:"day"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryAppliedMessage builds a message for a committed entry.
func NewEntryAppliedMessage(e core.Entry, effect core.Effect) *EntryAppliedMessage {
	return &EntryAppliedMessage{
		ID:          uuid.NewString(),
		Society:     e.Account.Society,
		Category:    string(e.Account.Category),
		Account:     e.Account.Name,
		AmountPaise: e.Amount.Paise,
		Side:        string(e.Side),
		Effect:      string(effect),
		Day:         string(e.Day),
		Timestamp:   time.Now(),
	}
}

func (m *EntryAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryAppliedMessageFromJSON(data []byte) (*EntryAppliedMessage, error) {
	var msg EntryAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
