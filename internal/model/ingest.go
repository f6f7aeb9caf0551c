package model

// ManualInput is one manual to ingest together with the metadata that was
// published next to it.
type ManualInput struct {
	URL             string   `json:"url"`
	Format          string   `json:"format"`
	DeviceType      string   `json:"device_type"`
	DeviceModelUsed bool     `json:"device_model_used"`
	ContentType     string   `json:"content_type"`
	Categories      []string `json:"categories"`
	Force           bool     `json:"force"`
	Data            []byte   `json:"-"`
}

type IngestReport struct {
	URL           string `json:"url"`
	DocType       string `json:"doc_type"`
	Pages         int    `json:"pages"`
	ExcludedPages []int  `json:"excluded_pages"`
	Chunks        int    `json:"chunks"`
	ArchiveKey    string `json:"archive_key,omitempty"`
	Reingested    bool   `json:"reingested"`
	Err           error  `json:"-"`
}

type TicketInput struct {
	TicketID    string   `json:"ticket_id"`
	DeviceType  string   `json:"device_type"`
	Description string   `json:"description"`
	Worknote    string   `json:"worknote"`
	Success     bool     `json:"success"`
	RemoteFix   bool     `json:"remote_fix"`
	SpareParts  []string `json:"spare_parts"`
}
