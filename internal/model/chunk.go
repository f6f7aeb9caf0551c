package model

// TextSegment is a linearized piece of a document. PageNo is 1-based, 0 when unknown.
type TextSegment struct {
	Text   string `json:"text"`
	PageNo int    `json:"page_no"`
}

type Chunk struct {
	Text   string `json:"text"`
	PageNo int    `json:"page_no"`
}

func (c Chunk) HasPage() bool {
	return c.PageNo > 0
}
