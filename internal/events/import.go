package events

// Event types.
const (
	EventBatchStarted     = "batch.started"
	EventBatchCompleted   = "batch.completed"
	EventImportCommitted  = "import.committed"
	EventImportConflicted = "import.conflicted"
	EventImportFailed     = "import.failed"
	EventCatalogChanged   = "catalog.changed"
)

// BatchStarted is emitted when an import batch acquires the library lock.
type BatchStarted struct {
	BaseEvent
	BatchID string   `json:"batch_id"`
	Paths   []string `json:"paths"`
}

// BatchCompleted is emitted after every item of a batch is terminal.
type BatchCompleted struct {
	BaseEvent
	BatchID              string `json:"batch_id"`
	Committed            int    `json:"committed"`
	Conflicted           int    `json:"conflicted"`
	Failed               int    `json:"failed"`
	Deferred             int    `json:"deferred"`
	Subsumed             int    `json:"subsumed"`
	Junk                 int    `json:"junk"`
	EncounteredConflicts bool   `json:"encountered_conflicts"`
	DurationMS           int64  `json:"duration_ms"`
}

// ImportCommitted is emitted when a file lands in the catalog. The entity is
// the game, or the BIOS/artwork target for those kinds.
type ImportCommitted struct {
	BaseEvent
	BatchID  string `json:"batch_id"`
	Kind     string `json:"kind"`
	SystemID string `json:"system_id,omitempty"`
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	Files    int    `json:"files"`
}

// ImportConflicted is emitted when a file is parked in the conflicts area.
type ImportConflicted struct {
	BaseEvent
	BatchID    string   `json:"batch_id"`
	Source     string   `json:"source"`
	Dest       string   `json:"dest"`
	Candidates []string `json:"candidates,omitempty"`
	Reason     string   `json:"reason"`
}

// ImportFailed is emitted when a file could not be imported.
type ImportFailed struct {
	BaseEvent
	BatchID string `json:"batch_id"`
	Source  string `json:"source"`
	Reason  string `json:"reason"`
	Retry   bool   `json:"retry"` // left in place for the next batch
}

// CatalogChanged is emitted after a batch that added, removed or updated
// catalog records. Readers of cached system or catalog state refresh on it.
type CatalogChanged struct {
	BaseEvent
	BatchID string `json:"batch_id"`
	Changes int    `json:"changes"`
}
