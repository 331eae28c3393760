package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/project-portal/project-portal-backend/internal/apperrors"
	"internship-hub/project-portal/project-portal-backend/internal/auth"
	"internship-hub/project-portal/project-portal-backend/internal/projects"
	"internship-hub/project-portal/project-portal-backend/internal/reports/export"
	"internship-hub/project-portal/project-portal-backend/pkg/storage"
)

// ArchiveConfig locates archived exports in object storage
type ArchiveConfig struct {
	Bucket    string
	Prefix    string
	URLExpiry time.Duration
}

// Service renders project sheets and archives them
type Service struct {
	projects projects.Repository
	exports  Repository
	store    storage.S3Client
	archive  ArchiveConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new reports service. store may be nil, in which case
// sheets can be downloaded but not archived.
func NewService(projectRepo projects.Repository, exports Repository, store storage.S3Client, archive ArchiveConfig, logger *zap.Logger) *Service {
	if archive.URLExpiry <= 0 {
		archive.URLExpiry = 15 * time.Minute
	}
	return &Service{
		projects: projectRepo,
		exports:  exports,
		store:    store,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// BuildSheet collects the project, its positions and their requirements
func (s *Service) BuildSheet(ctx context.Context, projectID int64) (*export.Sheet, *projects.Project, error) {
	project, err := s.projects.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return nil, nil, apperrors.New(apperrors.CodeNotFound, projects.MsgProjectNotFound)
		}
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, "failed to get project", err)
	}
	positions, err := s.projects.ListPositions(ctx, projectID)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list positions", err)
	}

	sheet := &export.Sheet{
		Title:       project.Name,
		Subtitle:    fmt.Sprintf("%s - %s", project.CompanyName, project.UniversityName),
		GeneratedAt: s.now(),
		Summary: []export.Field{
			{Label: "Proyecto", Value: project.Name},
			{Label: "Descripción", Value: project.Description},
			{Label: "Estado", Value: project.Status.Label()},
			{Label: "Empresa", Value: fmt.Sprintf("%s (%s)", project.CompanyName, project.CompanyTaxID)},
			{Label: "Universidad", Value: fmt.Sprintf("%s (%s)", project.UniversityName, project.UniversityTaxID)},
			{Label: "Apertura de postulaciones", Value: project.ApplicationsOpenDate},
			{Label: "Cierre de postulaciones", Value: project.ApplicationsCloseDate},
			{Label: "Inicio de actividades", Value: project.ActivitiesStartDate},
			{Label: "Fin de actividades", Value: project.ActivitiesEndDate},
		},
		Tables: []export.Table{positionsTable(positions), requirementsTable(positions)},
	}
	return sheet, project, nil
}

// Render produces a downloadable sheet
func (s *Service) Render(ctx context.Context, projectID int64, format export.Format) (*Document, error) {
	sheet, _, err := s.BuildSheet(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.render(projectID, format, *sheet)
}

// Archive renders the sheet, uploads it and records the export
func (s *Service) Archive(ctx context.Context, projectID int64, format export.Format) (*ArchivedExport, error) {
	if s.store == nil || s.archive.Bucket == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "export archiving is not configured")
	}

	sheet, project, err := s.BuildSheet(ctx, projectID)
	if err != nil {
		return nil, err
	}
	doc, err := s.render(projectID, format, *sheet)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &Export{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Format:        format,
		FileSizeBytes: int64(len(doc.Data)),
		ProjectStatus: string(project.Status),
		RequestedBy:   auth.SubjectFrom(ctx),
		CreatedAt:     now,
	}
	record.FileKey = path.Join(s.archive.Prefix, fmt.Sprintf("projects/%d", projectID),
		fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405"), doc.Filename))

	if err := s.store.Upload(ctx, s.archive.Bucket, record.FileKey, bytes.NewReader(doc.Data), doc.ContentType); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to upload export", err)
	}
	if err := s.exports.CreateExport(ctx, record); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to record export", err)
	}

	url, err := s.store.GetPresignedURL(ctx, s.archive.Bucket, record.FileKey, s.archive.URLExpiry)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to sign download url", err)
	}

	s.logger.Info("Project sheet archived",
		zap.Int64("project_id", projectID),
		zap.String("format", string(format)),
		zap.String("key", record.FileKey),
		zap.Int64("bytes", record.FileSizeBytes))

	return &ArchivedExport{
		Export:       *record,
		DownloadURL:  url,
		URLExpiresAt: now.Add(s.archive.URLExpiry),
	}, nil
}

// ListArchives returns the archived exports of a project, newest first
func (s *Service) ListArchives(ctx context.Context, projectID int64) ([]*Export, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, projects.MsgProjectNotFound)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to get project", err)
	}
	exports, err := s.exports.ListExports(ctx, projectID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list exports", err)
	}
	return exports, nil
}

func (s *Service) render(projectID int64, format export.Format, sheet export.Sheet) (*Document, error) {
	var buf bytes.Buffer
	if err := export.Render(&buf, format, sheet); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to render project sheet", err)
	}
	return &Document{
		Filename:    fmt.Sprintf("proyecto-%d.%s", projectID, format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func positionsTable(positions []*projects.Position) export.Table {
	table := export.Table{
		Name: "Puestos",
		Columns: []export.Column{
			{Key: "code", Label: "Código"},
			{Key: "name", Label: "Puesto"},
			{Key: "vacancies", Label: "Vacantes"},
			{Key: "max_applications", Label: "Máx. postulaciones"},
			{Key: "weekly_hours", Label: "Horas semanales"},
			{Key: "requirements", Label: "Requisitos"},
			{Key: "withdrawn", Label: "Fecha de baja"},
		},
	}
	for _, p := range positions {
		table.Rows = append(table.Rows, map[string]any{
			"code":             p.Code,
			"name":             p.Name,
			"vacancies":        p.VacancyCount,
			"max_applications": p.MaxApplicationCount,
			"weekly_hours":     p.WeeklyHours,
			"requirements":     len(p.Requirements),
			"withdrawn":        p.WithdrawnDate,
		})
	}
	return table
}

func requirementsTable(positions []*projects.Position) export.Table {
	table := export.Table{
		Name: "Requisitos",
		Columns: []export.Column{
			{Key: "position", Label: "Puesto"},
			{Key: "career_code", Label: "Carrera"},
			{Key: "career_name", Label: "Nombre de carrera"},
			{Key: "study_plan", Label: "Plan de estudios"},
			{Key: "approved", Label: "Materias aprobadas"},
			{Key: "in_progress", Label: "Materias en curso"},
		},
	}
	for _, p := range positions {
		for _, r := range p.Requirements {
			if r.WithdrawnDate != nil {
				continue
			}
			table.Rows = append(table.Rows, map[string]any{
				"position":    p.Code,
				"career_code": r.CareerCode,
				"career_name": r.CareerName,
				"study_plan":  r.StudyPlanCode,
				"approved":    r.RequiredApprovedCourses,
				"in_progress": r.RequiredInProgressCourses,
			})
		}
	}
	return table
}
