package model

// EmbeddingCache is one cached vector, keyed by model, task type and a hash
// of the embedded text. Ctime is in unix seconds.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name" db:"model_name"`
	TaskType    string    `json:"task_type" db:"task_type"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Embedding   []float32 `json:"embedding" db:"-"`
	Ctime       int64     `json:"ctime" db:"ctime"`
}
