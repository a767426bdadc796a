package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"tutorhub-backend/internal/domain"
	"tutorhub-backend/internal/infrastructure/cache"
	"tutorhub-backend/internal/repository"
	"tutorhub-backend/pkg/api"
	appErrors "tutorhub-backend/pkg/errors"
)

// CourseHandler serves the cached course listing and featured teacher
// endpoints. Responses are cached as marshaled JSON so cache hits skip
// both the database and re-serialization.
type CourseHandler struct {
	listings      *cache.ListCache
	featured      *cache.ListCache
	courses       repository.CourseRepository
	teachers      repository.TeacherRepository
	featuredLimit int
	logger        *zap.Logger
}

// NewCourseHandler wires the read surface to its caches and repositories.
func NewCourseHandler(listings, featured *cache.ListCache, courses repository.CourseRepository, teachers repository.TeacherRepository, featuredLimit int, logger *zap.Logger) *CourseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if featuredLimit <= 0 {
		featuredLimit = 10
	}
	return &CourseHandler{
		listings:      listings,
		featured:      featured,
		courses:       courses,
		teachers:      teachers,
		featuredLimit: featuredLimit,
		logger:        logger,
	}
}

// ListCourses handles GET /api/v1/courses.
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := domain.CourseListQuery{
		Page:      queryInt(r, "page", 1),
		Size:      queryInt(r, "size", defaultPageSize),
		SubjectID: queryID(r, "subject"),
		GradeID:   queryID(r, "grade"),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 || q.Size > maxPageSize {
		q.Size = defaultPageSize
	}

	payload, err := h.listings.GetList(r.Context(), q.Page, q.Size, q.Dimensions(), func(ctx context.Context) ([]byte, error) {
		return h.computeCoursePage(ctx, q)
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeCached(w, payload)
}

// FeaturedTeachers handles GET /api/v1/teachers/featured via the hot-key
// path, which also consults the per-process cache.
func (h *CourseHandler) FeaturedTeachers(w http.ResponseWriter, r *http.Request) {
	dims := []domain.Dimension{domain.All("teacher")}
	payload, err := h.featured.GetHot(r.Context(), "featured", dims, h.ComputeFeatured)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeCached(w, payload)
}

// ComputeFeatured recomputes the featured-teachers payload. The warming
// hook reuses it after invalidations to refill the hot key eagerly.
func (h *CourseHandler) ComputeFeatured(ctx context.Context) ([]byte, error) {
	teachers, err := h.teachers.ListFeatured(ctx, h.featuredLimit)
	if err != nil {
		return nil, mapRepositoryError(err, "featured teachers")
	}
	out := make([]api.TeacherResponse, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, api.TeacherResponse{
			TeacherID:    strconv.FormatInt(t.ID, 10),
			Name:         t.Name,
			CurrentHours: t.CurrentPeriodHours.StringFixed(2),
			LastHours:    t.PreviousPeriodHours.StringFixed(2),
		})
	}
	return json.Marshal(out)
}

func (h *CourseHandler) computeCoursePage(ctx context.Context, q domain.CourseListQuery) ([]byte, error) {
	courses, err := h.courses.List(ctx, q)
	if err != nil {
		return nil, mapRepositoryError(err, "course listing")
	}
	resp := api.CourseListResponse{
		Page:    q.Page,
		Size:    q.Size,
		Courses: make([]api.CourseResponse, 0, len(courses)),
	}
	for _, c := range courses {
		resp.Courses = append(resp.Courses, api.CourseResponse{
			CourseID:  strconv.FormatInt(c.ID, 10),
			Title:     c.Title,
			TeacherID: strconv.FormatInt(c.TeacherID, 10),
			SubjectID: strconv.FormatInt(c.SubjectID, 10),
			GradeID:   strconv.FormatInt(c.GradeID, 10),
			Status:    c.Status,
		})
	}
	return json.Marshal(resp)
}

// mapRepositoryError translates repository sentinels into the typed errors
// handleServiceError knows how to render.
func mapRepositoryError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.NewNotFound(what + " not found")
	}
	return appErrors.Wrap(err, what+" query failed")
}

func writeCached(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
