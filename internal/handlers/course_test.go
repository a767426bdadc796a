package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/infrastructure/cache"
	"tutorhub-backend/internal/repository"
	"tutorhub-backend/pkg/api"
	appErrors "tutorhub-backend/pkg/errors"
)

type stubCourseRepo struct {
	calls   int
	courses []domain.Course
	err     error
	lastQ   domain.CourseListQuery
}

func (s *stubCourseRepo) List(ctx context.Context, q domain.CourseListQuery) ([]domain.Course, error) {
	s.calls++
	s.lastQ = q
	return s.courses, s.err
}

type stubTeacherList struct {
	calls    int
	teachers []domain.Teacher
}

func (s *stubTeacherList) FindByID(ctx context.Context, id int64) (*domain.Teacher, error) {
	return nil, errors.New("not used")
}

func (s *stubTeacherList) ListFeatured(ctx context.Context, limit int) ([]domain.Teacher, error) {
	s.calls++
	if len(s.teachers) > limit {
		return s.teachers[:limit], nil
	}
	return s.teachers, nil
}

func (s *stubTeacherList) IncrementCurrentHours(ctx context.Context, teacherID int64, delta decimal.Decimal) error {
	return errors.New("not used")
}

func (s *stubTeacherList) RolloverHours(ctx context.Context) (int64, error) {
	return 0, errors.New("not used")
}

func newHandlerFixture(courses *stubCourseRepo, teachers *stubTeacherList) *CourseHandler {
	store := cache.NewMemoryStore(64, nil)
	listings := cache.NewListCache(store, nil, cache.ListCacheConfig{
		Feature: "course", TTL: time.Minute, LockTTL: 5 * time.Second,
	}, nil, nil)
	featured := cache.NewListCache(store, cache.NewLocalCache(), cache.ListCacheConfig{
		Feature: "teacher", TTL: time.Minute, LockTTL: 5 * time.Second,
	}, nil, nil)
	return NewCourseHandler(listings, featured, courses, teachers, 8, nil)
}

func TestListCoursesServesAndCaches(t *testing.T) {
	repo := &stubCourseRepo{courses: []domain.Course{
		{ID: 1, Title: "Algebra", TeacherID: 9, SubjectID: 7, GradeID: 5, Status: "active"},
	}}
	h := newHandlerFixture(repo, &stubTeacherList{})

	do := func() api.CourseListResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses?page=1&size=20&subject=7&grade=5", nil)
		rec := httptest.NewRecorder()
		h.ListCourses(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp api.CourseListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := do()
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Size)
	require.Len(t, resp.Courses, 1)
	assert.Equal(t, "1", resp.Courses[0].CourseID)
	assert.Equal(t, "Algebra", resp.Courses[0].Title)
	assert.Equal(t, domain.CourseListQuery{Page: 1, Size: 20, SubjectID: 7, GradeID: 5}, repo.lastQ)

	// Second identical request is a cache hit.
	do()
	assert.Equal(t, 1, repo.calls)
}

func TestListCoursesDefaultsAndClamps(t *testing.T) {
	repo := &stubCourseRepo{}
	h := newHandlerFixture(repo, &stubTeacherList{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses?page=0&size=9999", nil)
	rec := httptest.NewRecorder()
	h.ListCourses(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.lastQ.Page)
	assert.Equal(t, defaultPageSize, repo.lastQ.Size)
	assert.Zero(t, repo.lastQ.SubjectID)
	assert.Zero(t, repo.lastQ.GradeID)
}

func TestListCoursesSourceErrorIs500(t *testing.T) {
	repo := &stubCourseRepo{err: errors.New("db down")}
	h := newHandlerFixture(repo, &stubTeacherList{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	h.ListCourses(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestListCoursesNotFoundIs404(t *testing.T) {
	repo := &stubCourseRepo{err: repository.ErrNotFound}
	h := newHandlerFixture(repo, &stubTeacherList{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	h.ListCourses(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "not found")
}

func TestHandleServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", appErrors.NewValidation("bad size"), http.StatusBadRequest},
		{"not found", appErrors.NewNotFound("course listing not found"), http.StatusNotFound},
		{"unavailable", appErrors.NewUnavailable("store down", errors.New("refused")), http.StatusServiceUnavailable},
		{"untyped", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tc.err)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestFeaturedTeachers(t *testing.T) {
	teachers := &stubTeacherList{teachers: []domain.Teacher{
		{
			ID: 3, Name: "Ada", Featured: true,
			CurrentPeriodHours:  decimal.RequireFromString("12.5"),
			PreviousPeriodHours: decimal.RequireFromString("8"),
		},
	}}
	h := newHandlerFixture(&stubCourseRepo{}, teachers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/teachers/featured", nil)
	rec := httptest.NewRecorder()
	h.FeaturedTeachers(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []api.TeacherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "3", resp[0].TeacherID)
	assert.Equal(t, "Ada", resp[0].Name)
	assert.Equal(t, "12.50", resp[0].CurrentHours)
	assert.Equal(t, "8.00", resp[0].LastHours)

	// Repeat request hits the hot-key tiers.
	rec = httptest.NewRecorder()
	h.FeaturedTeachers(rec, httptest.NewRequest(http.MethodGet, "/api/v1/teachers/featured", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, teachers.calls)
}

func TestRouterWiresEndpoints(t *testing.T) {
	h := newHandlerFixture(&stubCourseRepo{}, &stubTeacherList{})
	router := NewRouter(h, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
