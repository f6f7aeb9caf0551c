package model

type RetrievalResult struct {
	Tickets []*TicketResult `json:"tickets"`
	Manuals []*ManualResult `json:"manuals"`
}

// RankedID is one row of a single search branch; Rank starts at 1.
type RankedID struct {
	ID   int64 `db:"id"`
	Rank int   `db:"rank"`
}

type FusedID struct {
	ID    int64
	Score float64
}

const (
	CorpusManuals = "manuals"
	CorpusTickets = "tickets"
)

// EmbeddingDimensions is the width of every stored chunk embedding.
const EmbeddingDimensions = 512
