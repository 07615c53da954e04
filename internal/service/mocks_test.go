package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

type memStaff struct {
	mu        sync.Mutex
	byID      map[string]*models.Staff
	createErr error
	lastLogin map[string]time.Time
}

func newMemStaff(staff ...*models.Staff) *memStaff {
	m := &memStaff{byID: map[string]*models.Staff{}, lastLogin: map[string]time.Time{}}
	for _, s := range staff {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memStaff) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStaff) FindByStaffID(ctx context.Context, staffID string) (*models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.StaffID == staffID {
			copy := *s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStaff) FindByEmail(ctx context.Context, email string) (*models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Email == email {
			copy := *s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStaff) Create(ctx context.Context, staff *models.Staff) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.StaffID == staff.StaffID || s.Email == staff.Email {
			return repository.ErrDuplicate
		}
	}
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	copy := *staff
	m.byID[staff.ID] = &copy
	return nil
}

func (m *memStaff) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLogin[id] = ts
	return nil
}

func (m *memStaff) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PasswordHash = passwordHash
	return nil
}

func (m *memStaff) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Role = role
	return nil
}

type memStudents struct {
	mu   sync.Mutex
	byID map[string]*models.Student
}

func newMemStudents(students ...*models.Student) *memStudents {
	m := &memStudents{byID: map[string]*models.Student{}}
	for _, s := range students {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memStudents) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.StudentID == studentID {
			copy := *s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStudents) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.StudentID == student.StudentID {
			return repository.ErrDuplicate
		}
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.EnrollmentStatus == "" {
		student.EnrollmentStatus = models.EnrollmentEnrolled
	}
	copy := *student
	m.byID[student.ID] = &copy
	return nil
}

func (m *memStudents) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

func (m *memStudents) UpdateEnrollmentStatus(ctx context.Context, id string, status models.EnrollmentStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.EnrollmentStatus = status
	return nil
}

type memClasses struct {
	mu   sync.Mutex
	byID map[string]*models.Class
}

func newMemClasses(classes ...*models.Class) *memClasses {
	m := &memClasses{byID: map[string]*models.Class{}}
	for _, c := range classes {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byID[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memClasses) Create(ctx context.Context, class *models.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	copy := *class
	m.byID[class.ID] = &copy
	return nil
}

func (m *memClasses) AdjustEnrollment(ctx context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.CurrentEnrollment += delta
	if c.CurrentEnrollment < 0 {
		c.CurrentEnrollment = 0
	}
	return nil
}

type memAssignments struct {
	mu   sync.Mutex
	byID map[string]*models.Assignment
}

func newMemAssignments(assignments ...*models.Assignment) *memAssignments {
	m := &memAssignments{byID: map[string]*models.Assignment{}}
	for _, a := range assignments {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memAssignments) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.byID {
		if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ClassID != "" && !a.AssignedToClass(filter.ClassID) {
			continue
		}
		if filter.PublishedOnly && !a.Published {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *memAssignments) Create(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	copy := *assignment
	m.byID[assignment.ID] = &copy
	return nil
}

func (m *memAssignments) Update(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[assignment.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *assignment
	m.byID[assignment.ID] = &copy
	return nil
}

func (m *memAssignments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.byID, id)
	return nil
}

type memSubmissions struct {
	mu      sync.Mutex
	byID    map[string]*models.Submission
	saveErr error
}

func newMemSubmissions(submissions ...*models.Submission) *memSubmissions {
	m := &memSubmissions{byID: map[string]*models.Submission{}}
	for _, s := range submissions {
		m.byID[s.ID] = s
	}
	return m
}

func (m *memSubmissions) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		copy := *s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memSubmissions) FindByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			copy := *s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memSubmissions) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Submission
	for _, s := range m.byID {
		if s.AssignmentID == assignmentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSubmissions) Create(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionSubmitted
	}
	copy := *submission
	m.byID[submission.ID] = &copy
	return nil
}

func (m *memSubmissions) Resubmit(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[submission.ID]; !ok {
		return sql.ErrNoRows
	}
	submission.Status = models.SubmissionSubmitted
	copy := *submission
	m.byID[submission.ID] = &copy
	return nil
}

func (m *memSubmissions) SaveGrade(ctx context.Context, submissionID string, grade models.SubmissionGrade) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[submissionID]
	if !ok {
		return sql.ErrNoRows
	}
	s.SubmissionGrade = grade
	s.Status = models.SubmissionGraded
	return nil
}

// memLedger mimics the unique (student, assignment) constraint: Upsert
// keeps the stored id of an existing pair.
type memLedger struct {
	mu      sync.Mutex
	entries map[string]*models.GradeEntry
	inserts int
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]*models.GradeEntry{}}
}

func ledgerKey(studentID, assignmentID string) string {
	return studentID + "|" + assignmentID
}

func (m *memLedger) FindByStudentAndAssignment(ctx context.Context, studentID, assignmentID string) (*models.GradeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[ledgerKey(studentID, assignmentID)]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memLedger) Upsert(ctx context.Context, entry *models.GradeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ledgerKey(entry.StudentID, entry.AssignmentID)
	if existing, ok := m.entries[key]; ok {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	} else {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = time.Now().UTC()
		m.inserts++
	}
	copy := *entry
	m.entries[key] = &copy
	return nil
}

func (m *memLedger) ListByStudent(ctx context.Context, filter models.GradeLedgerFilter) ([]models.GradeEntryDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GradeEntryDetail
	for _, e := range m.entries {
		if e.StudentID == filter.StudentID {
			out = append(out, models.GradeEntryDetail{GradeEntry: *e, AssignmentTitle: "Assignment " + e.AssignmentID})
		}
	}
	return out, nil
}

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type memAudit struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (m *memAudit) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *memAudit) ListByResource(ctx context.Context, resource, resourceID, action string, limit int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.Resource == resource && l.ResourceID != nil && *l.ResourceID == resourceID && (action == "" || l.Action == action) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type sentNotification struct {
	Room    string
	Type    models.NotificationType
	Message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) NotifyStudent(ctx context.Context, studentID string, kind models.NotificationType, message string, data map[string]interface{}) {
	f.record("student:"+studentID, kind, message)
}

func (f *fakeNotifier) NotifyStaff(ctx context.Context, staffID string, kind models.NotificationType, message string, data map[string]interface{}) {
	f.record("staff:"+staffID, kind, message)
}

func (f *fakeNotifier) NotifyClasses(ctx context.Context, classIDs []string, kind models.NotificationType, message string, data map[string]interface{}) {
	for _, id := range classIDs {
		f.record("class:"+id, kind, message)
	}
}

func (f *fakeNotifier) record(room string, kind models.NotificationType, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{Room: room, Type: kind, Message: message})
}

type memCache struct {
	mu          sync.Mutex
	values      map[string]interface{}
	invalidated []string
	gets        int
}

func newMemCache() *memCache {
	return &memCache{values: map[string]interface{}{}}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	if typed, ok := dest.(*[]models.GradeEntryDetail); ok {
		*typed = v.([]models.GradeEntryDetail)
	}
	return true, nil
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memCache) Invalidate(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		m.invalidated = append(m.invalidated, k)
	}
	return nil
}
