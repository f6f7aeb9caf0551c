package model

type TicketChunk struct {
	ID         int64     `json:"id" db:"id"`
	Chunk      string    `json:"chunk" db:"chunk"`
	Embedding  []float32 `json:"-" db:"-"`
	DeviceType string    `json:"device_type" db:"devicetype"`
	TicketID   string    `json:"ticket_id" db:"ticketid"`
}

type TicketResult struct {
	TicketChunk
	Score float64 `json:"score" db:"score"`
}
