package model

type AssistSummary struct {
	Description string `json:"description"`
	QueryString string `json:"query_string"`
}

type ManualReference struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	PageNumber int    `json:"page_number"`
	DocType    string `json:"doctype"`
}

type AssistContext struct {
	Tickets []string          `json:"tickets"`
	Manuals []ManualReference `json:"manuals"`
}

type AssistResult struct {
	Answer  string        `json:"answer"`
	Summary AssistSummary `json:"summary_json"`
	Context AssistContext `json:"context"`
}
