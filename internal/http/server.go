package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"semaphore/enrollment/internal/auth"
	"semaphore/enrollment/internal/config"
	"semaphore/enrollment/internal/model"
	"semaphore/enrollment/internal/policy"
	"semaphore/enrollment/internal/store"
)

const listCacheKey = "enrollments:all"

type Server struct {
	cfg   config.Config
	store store.IdentityStore
	redis *redis.Client
}

// NewServer wires the HTTP surface. redisClient may be nil; the enrollments
// listing is then served from the store on every request.
func NewServer(cfg config.Config, identityStore store.IdentityStore, redisClient *redis.Client) *Server {
	return &Server{
		cfg:   cfg,
		store: identityStore,
		redis: redisClient,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/enrollments", func(r chi.Router) {
		r.With(s.authMiddleware, s.requireAdmin).Get("/", s.handleListEnrollments)
		r.With(s.authMiddleware, s.requireAdmin).Post("/reset", s.handleReset)
		r.With(s.authMiddleware, s.requireSelfOrAdmin).Get("/{studentId}", s.handleGetStudent)
		r.With(s.authMiddleware, s.requireSelfOrAdmin).Post("/{studentId}", s.handleAddCourse)
		r.With(s.authMiddleware, s.requireSelfStudent).Delete("/{studentId}", s.handleRemoveCourse)
	})

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized user")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized user")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := policy.RequireAdmin(r.Context(), s.store, claimsFromContext(r.Context()))
		if !s.writeDecision(w, decision, err) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSelfOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "studentId")
		decision, err := policy.RequireSelfOrAdmin(r.Context(), s.store, claimsFromContext(r.Context()), target)
		if !s.writeDecision(w, decision, err) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSelfStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := chi.URLParam(r, "studentId")
		decision, err := policy.RequireSelfStudent(r.Context(), s.store, claimsFromContext(r.Context()), target)
		if !s.writeDecision(w, decision, err) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeDecision maps a policy decision to the response contract and reports
// whether the request may proceed.
func (s *Server) writeDecision(w http.ResponseWriter, decision policy.Decision, err error) bool {
	if err != nil {
		writeInternal(w, err)
		return false
	}
	switch decision {
	case policy.Allow:
		return true
	case policy.DenyForbidden:
		writeFailure(w, http.StatusForbidden, "Forbidden access")
	default:
		writeFailure(w, http.StatusUnauthorized, "Unauthorized user")
	}
	return false
}

// Models

type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

type courseRef struct {
	CourseID string `json:"courseId"`
}

type enrollmentGroup struct {
	StudentID string      `json:"studentId,omitempty"`
	Courses   []courseRef `json:"courses"`
}

type courseRequest struct {
	CourseID string `json:"courseId"`
}

// Handlers

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	if body, ok := s.cachedList(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeInternal(w, err)
		return
	}

	grouped := make([]enrollmentGroup, 0, len(users))
	for _, user := range users {
		group := enrollmentGroup{StudentID: user.StudentID, Courses: []courseRef{}}
		if user.StudentID != "" {
			student, err := s.store.GetStudent(r.Context(), user.StudentID)
			if err != nil && !errors.Is(err, store.ErrStudentNotFound) {
				writeInternal(w, err)
				return
			}
			for _, courseID := range student.Courses {
				group.Courses = append(group.Courses, courseRef{CourseID: courseID})
			}
		}
		grouped = append(grouped, group)
	}

	response := apiResponse{
		Success: true,
		Message: "Enrollments Information",
		Data:    grouped,
	}
	body, err := json.Marshal(response)
	if err != nil {
		writeInternal(w, err)
		return
	}
	s.storeListCache(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		writeInternal(w, err)
		return
	}
	s.invalidateListCache(r.Context())
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "enrollments database has been reset",
	})
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	student, err := s.store.GetStudent(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, store.ErrStudentNotFound) {
			writeFailure(w, http.StatusNotFound, "Student not found")
			return
		}
		writeInternal(w, err)
		return
	}
	if student.Courses == nil {
		student.Courses = []string{}
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Student Information",
		Data:    student,
	})
}

func (s *Server) handleAddCourse(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	claims := claimsFromContext(r.Context())

	// The self-or-admin gate lets ADMIN through, but the original contract
	// still refuses the mutation itself for ADMIN callers.
	if claims != nil && claims.Role == model.RoleAdmin {
		writeFailure(w, http.StatusForbidden, "Forbidden access")
		return
	}

	var req courseRequest
	if err := decodeJSON(r, &req); err != nil || req.CourseID == "" {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.store.AddCourse(r.Context(), studentID, req.CourseID); err != nil {
		switch {
		case errors.Is(err, store.ErrStudentNotFound):
			writeFailure(w, http.StatusNotFound, "Student not found")
		case errors.Is(err, store.ErrAlreadyEnrolled):
			writeFailure(w, http.StatusBadRequest, fmt.Sprintf("%s && %s is already exists", studentID, req.CourseID))
		default:
			writeInternal(w, err)
		}
		return
	}
	s.invalidateListCache(r.Context())

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Student %s && Course %s has been added successfully", studentID, req.CourseID),
		Data:    model.Enrollment{StudentID: studentID, CourseID: req.CourseID},
	})
}

func (s *Server) handleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")

	var req courseRequest
	if err := decodeJSON(r, &req); err != nil || req.CourseID == "" {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	remaining, err := s.store.RemoveCourse(r.Context(), studentID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrStudentNotFound):
			writeFailure(w, http.StatusNotFound, "Student not found")
		case errors.Is(err, store.ErrNotEnrolled):
			writeFailure(w, http.StatusBadRequest, "Enrollment does not exists")
		default:
			writeInternal(w, err)
		}
		return
	}
	s.invalidateListCache(r.Context())

	pairs := make([]model.Enrollment, 0, len(remaining))
	for _, courseID := range remaining {
		pairs = append(pairs, model.Enrollment{StudentID: studentID, CourseID: courseID})
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Student %s && Course %s has been deleted successfully", studentID, req.CourseID),
		Data:    pairs,
	})
}

// Cache

func (s *Server) cachedList(ctx context.Context) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	body, err := s.redis.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (s *Server) storeListCache(ctx context.Context, body []byte) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Set(ctx, listCacheKey, body, s.cfg.ListCacheTTL).Err()
}

func (s *Server) invalidateListCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, listCacheKey).Err()
}

// Helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message})
}

// writeInternal keeps fault detail out of the response; the caller only sees
// a generic retryable message with an opaque error marker.
func writeInternal(w http.ResponseWriter, _ error) {
	writeJSON(w, http.StatusInternalServerError, apiResponse{
		Success: false,
		Message: "Something is wrong, please try again",
		Error:   "internal_error",
	})
}
