package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sams-edu/attendance-api/internal/models"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
)

type mockClassStore struct {
	bySection map[string][]models.ClassDetail
	created   *models.Class
}

func (m *mockClassStore) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = "class-new"
	}
	m.created = class
	return nil
}

func (m *mockClassStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	return nil, sql.ErrNoRows
}

func (m *mockClassStore) ListBySection(ctx context.Context, section string) ([]models.ClassDetail, error) {
	return m.bySection[section], nil
}

func (m *mockClassStore) ListByFaculty(ctx context.Context, facultyID string) ([]models.ClassDetail, error) {
	return nil, nil
}

func (m *mockClassStore) List(ctx context.Context) ([]models.ClassDetail, error) { return nil, nil }

func (m *mockClassStore) DeleteCascade(ctx context.Context, classID string) error { return nil }

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockFacultyReader struct{}

func (m *mockFacultyReader) FindByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	if id == "fac-1" {
		return &models.FacultyDetail{Faculty: models.Faculty{ID: "fac-1"}}, nil
	}
	return nil, sql.ErrNoRows
}

type mockSectionCounter struct {
	count int
}

func (m *mockSectionCounter) CountBySection(ctx context.Context, department string, year int, section string) (int, error) {
	return m.count, nil
}

func adminActor() models.Actor {
	return models.Actor{UserID: "user-admin", Role: models.RoleAdmin}
}

func newClassFixture(cohort int, existing []models.ClassDetail) (*ClassService, *mockClassStore) {
	classes := &mockClassStore{bySection: map[string][]models.ClassDetail{"A": existing}}
	courses := &mockCourseReader{courses: map[string]models.Course{
		"course-1": {ID: "course-1", Code: "CS201", Name: "Data Structures", Department: "CS", Year: 2},
	}}
	svc := NewClassService(classes, courses, &mockFacultyReader{}, &mockSectionCounter{count: cohort}, &mockAuditSink{}, nil, nil)
	return svc, classes
}

func validClassRequest() CreateClassRequest {
	return CreateClassRequest{
		CourseID:  "course-1",
		FacultyID: "fac-1",
		Section:   "A",
		Schedule:  "MWF 09:00-10:00",
		Room:      "Room 101",
	}
}

func TestClassCreate(t *testing.T) {
	svc, classes := newClassFixture(30, nil)

	class, err := svc.Create(context.Background(), adminActor(), validClassRequest())
	require.NoError(t, err)
	assert.Equal(t, "MWF 09:00-10:00", class.Schedule)
	require.NotNil(t, classes.created)
}

func TestClassCreateAdminOnly(t *testing.T) {
	svc, _ := newClassFixture(30, nil)

	_, err := svc.Create(context.Background(), facultyActor(), validClassRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestClassCreateValidationPipeline(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateClassRequest)
		code   *appErrors.Error
	}{
		{"malformed schedule", func(r *CreateClassRequest) { r.Schedule = "Mon 9-10" }, appErrors.ErrValidation},
		{"unknown day code", func(r *CreateClassRequest) { r.Schedule = "XF 09:00-10:00" }, appErrors.ErrValidation},
		{"before operating hours", func(r *CreateClassRequest) { r.Schedule = "MWF 07:00-09:00" }, appErrors.ErrValidation},
		{"after operating hours", func(r *CreateClassRequest) { r.Schedule = "MWF 16:00-18:00" }, appErrors.ErrValidation},
		{"inverted times", func(r *CreateClassRequest) { r.Schedule = "MWF 11:00-10:00" }, appErrors.ErrInvalidTimeRange},
		{"bad room", func(r *CreateClassRequest) { r.Room = "Hall 12" }, appErrors.ErrValidation},
		{"bad room digits", func(r *CreateClassRequest) { r.Room = "Room 1" }, appErrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, classes := newClassFixture(30, nil)
			req := validClassRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), adminActor(), req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tt.code))
			assert.Nil(t, classes.created)
		})
	}
}

func TestClassCreateEmptyCohort(t *testing.T) {
	svc, _ := newClassFixture(0, nil)

	_, err := svc.Create(context.Background(), adminActor(), validClassRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrNoStudentsInSection))
}

func TestClassCreateScheduleConflict(t *testing.T) {
	existing := []models.ClassDetail{{
		Class:      models.Class{ID: "class-1", Section: "A", Schedule: "WF 09:30-10:30"},
		CourseName: "Algorithms",
	}}
	svc, classes := newClassFixture(30, existing)

	_, err := svc.Create(context.Background(), adminActor(), validClassRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleConflict))
	assert.Contains(t, appErrors.FromError(err).Message, "Algorithms")
	assert.Nil(t, classes.created)
}

func TestClassCreateNoConflictOnDisjointDays(t *testing.T) {
	existing := []models.ClassDetail{{
		Class:      models.Class{ID: "class-1", Section: "A", Schedule: "TTh 09:00-10:00"},
		CourseName: "Algorithms",
	}}
	svc, _ := newClassFixture(30, existing)

	_, err := svc.Create(context.Background(), adminActor(), validClassRequest())
	require.NoError(t, err)
}

func TestClassCreateNoConflictOnTouchingTimes(t *testing.T) {
	existing := []models.ClassDetail{{
		Class:      models.Class{ID: "class-1", Section: "A", Schedule: "MWF 10:00-11:00"},
		CourseName: "Algorithms",
	}}
	svc, _ := newClassFixture(30, existing)

	_, err := svc.Create(context.Background(), adminActor(), validClassRequest())
	require.NoError(t, err)
}
