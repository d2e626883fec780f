package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SweepStartedData contains data for SweepStarted events
type SweepStartedData struct {
	RunID    string `json:"run_id"`
	Topology string `json:"topology"`
	NPoints  int    `json:"n_points"`
	NLevels  int    `json:"n_levels"`
}

// EventType returns the event type for SweepStartedData
func (d *SweepStartedData) EventType() EventType {
	return SweepStarted
}

// SweepProgressData contains data for SweepProgress events
type SweepProgressData struct {
	RunID     string `json:"run_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Failed    int    `json:"failed"`
}

// EventType returns the event type for SweepProgressData
func (d *SweepProgressData) EventType() EventType {
	return SweepProgress
}

// SweepCompletedData contains data for SweepCompleted events
type SweepCompletedData struct {
	RunID      string `json:"run_id"`
	Points     int    `json:"points"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// EventType returns the event type for SweepCompletedData
func (d *SweepCompletedData) EventType() EventType {
	return SweepCompleted
}

// SweepFailedData contains data for SweepFailed events
type SweepFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for SweepFailedData
func (d *SweepFailedData) EventType() EventType {
	return SweepFailed
}

// RunDeletedData contains data for RunDeleted events
type RunDeletedData struct {
	RunID string `json:"run_id"`
}

// EventType returns the event type for RunDeletedData
func (d *RunDeletedData) EventType() EventType {
	return RunDeleted
}

// RunsPrunedData contains data for RunsPruned events
type RunsPrunedData struct {
	Removed int `json:"removed"`
}

// EventType returns the event type for RunsPrunedData
func (d *RunsPrunedData) EventType() EventType {
	return RunsPruned
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}
