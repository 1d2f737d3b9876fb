package dto

// ── Export ──

// ExportRequest subject_id selects one subject; empty exports every subject
type ExportRequest struct {
	SubjectID string `form:"subject_id" binding:"omitempty,uuid"`
}

// DetailedExportRequest detailed TP sheet of one subject
type DetailedExportRequest struct {
	SubjectID string `form:"subject_id" binding:"required,uuid"`
}
