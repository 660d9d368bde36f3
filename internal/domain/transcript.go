package domain

import "time"

// Message is a single entry of a chat transcript. Entries are append-only.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	CreatedAt time.Time `json:"createdAt"`
}
