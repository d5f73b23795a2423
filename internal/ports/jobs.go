package ports

// TaskRunner runs analysis for a file id in the background. Submit must not block on the analysis.
type TaskRunner interface {
    Submit(fileID string)
}

// CleanupScheduler defers media deletion. Cancel is called on explicit delete.
type CleanupScheduler interface {
    Schedule(fileID, path string)
    Cancel(fileID string)
}
