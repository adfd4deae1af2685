package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Yiteng-CHEN/snaplearn/internal/grading"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
	"github.com/Yiteng-CHEN/snaplearn/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc   *grading.Service
	store *store.Store
}

// New creates a new Handler.
func New(svc *grading.Service, s *store.Store) *Handler {
	return &Handler{svc: svc, store: s}
}

// Routes registers all API routes. Every route requires an identified user;
// the /teacher group additionally requires a teacher or admin role.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.identify)

		r.Get("/homeworks", h.handleListHomeworks)
		r.Post("/homeworks/{homeworkID}/submit", h.handleSubmitHomework)
		r.Post("/videos/{videoID}/homework/submit", h.handleSubmitHomeworkByVideo)
		r.Post("/questions/{questionID}/answer", h.handleSubmitAnswer)
		r.Post("/questions/{questionID}/hint", h.handleRequestHint)
		r.Post("/questions/{questionID}/hint/solved", h.handleHintSolved)
		r.Get("/mistakes", h.handleMistakeBook)
		r.Post("/mistakes", h.handleReportMistake)

		r.Route("/teacher", func(r chi.Router) {
			r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))

			r.Get("/homeworks", h.handleTeacherHomeworks)
			r.Post("/homeworks", h.handleCreateHomework)
			r.Post("/homeworks/upload", h.handleUploadHomeworks)
			r.Delete("/homeworks/{homeworkID}", h.handleDeleteHomework)
			r.Post("/homeworks/{homeworkID}/questions", h.handleAddQuestion)
			r.Get("/homeworks/{homeworkID}/students", h.handleHomeworkStudents)
			r.Get("/homeworks/{homeworkID}/students/{studentID}", h.handleStudentDetail)
			r.Post("/homeworks/{homeworkID}/students/{studentID}/regrade", h.handleRequestRegrade)
			r.Get("/homeworks/{homeworkID}/export", h.handleExport)
			r.Post("/answers/{answerID}/score", h.handleCorrectScore)
			r.Post("/answers/{answerID}/subjective", h.handleCorrectSubjective)
			r.Get("/answers/{answerID}/corrections", h.handleCorrections)
			r.Post("/reconcile", h.handleReconcile)
		})
	})
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grading.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, grading.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, grading.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, grading.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, grading.ErrAIBackend):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into dst and runs its validation tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", grading.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid fields: %s", grading.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", grading.ErrValidation, err)
	}
	return nil
}

// urlID parses a positive integer path parameter.
func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", grading.ErrValidation, name)
	}
	return id, nil
}
