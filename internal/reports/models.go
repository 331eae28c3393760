package reports

import (
	"time"

	"github.com/google/uuid"

	"internship-hub/project-portal/project-portal-backend/internal/reports/export"
)

// Export records a project sheet archived to object storage
type Export struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ProjectID     int64         `json:"project_id" db:"project_id"`
	Format        export.Format `json:"format" db:"format"`
	FileKey       string        `json:"file_key" db:"file_key"`
	FileSizeBytes int64         `json:"file_size_bytes" db:"file_size_bytes"`
	ProjectStatus string        `json:"project_status" db:"project_status"`
	RequestedBy   string        `json:"requested_by" db:"requested_by"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// Document is a rendered project sheet
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ArchivedExport is an archived sheet with a temporary download link
type ArchivedExport struct {
	Export
	DownloadURL  string    `json:"download_url"`
	URLExpiresAt time.Time `json:"url_expires_at"`
}
