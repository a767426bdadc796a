// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

import (
	"encoding/json"
	"net/http"
)

// CourseResponse is the API representation of a single course listing entry.
type CourseResponse struct {
	CourseID  string `json:"courseId"`
	Title     string `json:"title"`
	TeacherID string `json:"teacherId"`
	SubjectID string `json:"subjectId"`
	GradeID   string `json:"gradeId"`
	Status    string `json:"status"`
}

// CourseListResponse is a paginated page of course listings.
type CourseListResponse struct {
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	Courses []CourseResponse `json:"courses"`
}

// TeacherResponse is the API representation of a featured teacher.
type TeacherResponse struct {
	TeacherID    string `json:"teacherId"`
	Name         string `json:"name"`
	CurrentHours string `json:"currentHours"`
	LastHours    string `json:"lastHours"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success formats a successful JSON response.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error formats a JSON error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
