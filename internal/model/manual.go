package model

type ManualChunk struct {
	ID              int64     `json:"id" db:"id"`
	Chunk           string    `json:"chunk" db:"chunk"`
	Embedding       []float32 `json:"-" db:"-"`
	PageNumber      int       `json:"page_number" db:"page_number"`
	DeviceType      string    `json:"device_type" db:"devicetype"`
	DeviceModelUsed bool      `json:"device_model_used" db:"devicemodel_used"`
	URL             string    `json:"url" db:"url"`
	DocType         string    `json:"doc_type" db:"doctype"`
}

type ManualResult struct {
	ManualChunk
	Score float64 `json:"score" db:"score"`
}
