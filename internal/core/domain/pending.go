package domain

import "time"

// RegisterOutcome is the result of registering a detected file.
type RegisterOutcome string

// Registration outcomes.
const (
	// RegisterAdmitted means a new PendingJob was created.
	RegisterAdmitted RegisterOutcome = "admitted"

	// RegisterDuplicate means a job for the path already existed.
	// Duplicate detections are no-ops, not errors.
	RegisterDuplicate RegisterOutcome = "duplicate"
)

// JobState distinguishes queued jobs from jobs being processed.
type JobState string

// Job states.
const (
	JobStatePending JobState = "pending"
	JobStateRunning JobState = "running"
)

// PendingJob is a detected file awaiting (or undergoing) processing.
// At most one PendingJob exists per file path.
type PendingJob struct {
	// Path is the file path and the job's identity.
	Path string `json:"file_path"`

	// FileName is the base name of the file.
	FileName string `json:"file_name"`

	// DetectedAt is when the file was registered.
	DetectedAt time.Time `json:"detected_at"`

	// State is pending until a processing run claims the job.
	State JobState `json:"state"`

	// Seq orders jobs by admission.
	Seq uint64 `json:"-"`
}

// NotificationType identifies a push notification.
type NotificationType string

// Notification types.
const (
	NotificationNewFile NotificationType = "new_file"
)

// Notification is pushed to subscribers when a new file is admitted.
type Notification struct {
	Type     NotificationType `json:"type"`
	FilePath string           `json:"file_path"`
	FileName string           `json:"file_name"`
}
