package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
)

type gradeLedgerReader interface {
	ListByStudent(ctx context.Context, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type gradeCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StudentGradesCacheKey is the cache key of a student's unfiltered ledger.
func StudentGradesCacheKey(studentID string) string {
	return "grades:student:" + studentID
}

// GradeReport is a rendered grade ledger export.
type GradeReport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// GradeService serves grade ledger reads and exports.
type GradeService struct {
	ledger     gradeLedgerReader
	students   studentReader
	authorizer *rbac.Authorizer
	cache      gradeCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewGradeService constructs a GradeService. cache may be nil.
func NewGradeService(ledger gradeLedgerReader, students studentReader, authorizer *rbac.Authorizer, cache gradeCache, cacheTTL time.Duration, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		ledger:     ledger,
		students:   students,
		authorizer: authorizer,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListStudentGrades returns a student's ledger. Students may only read their
// own; staff need grades:read.
func (s *GradeService) ListStudentGrades(ctx context.Context, viewer *models.Identity, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error) {
	if _, err := s.authorize(ctx, viewer, filter.StudentID, rbac.PermGradesRead); err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// ExportStudentGrades renders a student's ledger as CSV or PDF.
func (s *GradeService) ExportStudentGrades(ctx context.Context, viewer *models.Identity, filter models.GradeLedgerFilter, rawFormat string) (*GradeReport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, err.Error())
	}

	student, err := s.authorize(ctx, viewer, filter.StudentID, rbac.PermGradesExport)
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	body, err := export.Render(format, gradeDataset(student, entries, s.now()))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render grade report")
	}
	return &GradeReport{
		Filename:    fmt.Sprintf("grades-%s.%s", student.StudentID, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *GradeService) authorize(ctx context.Context, viewer *models.Identity, studentID string, perm models.Permission) (*models.Student, error) {
	if viewer == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if viewer.IsStudent() {
		if err := rbac.CheckSelf(viewer, models.KindStudent, studentID); err != nil {
			return nil, err
		}
	} else if err := s.authorizer.CheckPermission(viewer, perm); err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func (s *GradeService) list(ctx context.Context, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error) {
	cacheable := s.cache != nil && filter.CourseID == "" && filter.Semester == "" && filter.AcademicYear == ""
	key := StudentGradesCacheKey(filter.StudentID)

	if cacheable {
		var cached []models.GradeEntryDetail
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	entries, err := s.ledger.ListByStudent(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grades")
	}
	if entries == nil {
		entries = []models.GradeEntryDetail{}
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
			s.logger.Debug("grade cache write skipped", zap.Error(err))
		}
	}
	return entries, nil
}

func gradeDataset(student *models.Student, entries []models.GradeEntryDetail, generatedAt time.Time) export.Dataset {
	headers := []string{"Assignment", "Course", "Score", "Max Score", "Percentage", "Letter", "Semester", "Academic Year", "Graded At"}
	rows := make([]map[string]string, 0, len(entries))
	var total float64
	for _, e := range entries {
		total += e.Percentage
		rows = append(rows, map[string]string{
			"Assignment":    e.AssignmentTitle,
			"Course":        e.CourseID,
			"Score":         strconv.FormatFloat(e.Score, 'f', -1, 64),
			"Max Score":     strconv.FormatFloat(e.MaxScore, 'f', -1, 64),
			"Percentage":    strconv.FormatFloat(e.Percentage, 'f', 2, 64),
			"Letter":        e.LetterGrade,
			"Semester":      string(e.Semester),
			"Academic Year": e.AcademicYear,
			"Graded At":     e.GradedAt.Format("2006-01-02"),
		})
	}

	average := "-"
	if len(entries) > 0 {
		average = strconv.FormatFloat(ComputePercentage(total, float64(len(entries))*100), 'f', 2, 64)
	}

	return export.Dataset{
		Title: "Grade Report",
		Fields: []export.Field{
			{Label: "Student", Value: student.FullName()},
			{Label: "Student ID", Value: student.StudentID},
			{Label: "Average", Value: average},
			{Label: "Generated", Value: generatedAt.Format(time.RFC3339)},
		},
		Headers: headers,
		Rows:    rows,
	}
}
