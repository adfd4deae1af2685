package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Yiteng-CHEN/snaplearn/internal/grading"
	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

// maxUploadBytes bounds homework file uploads.
const maxUploadBytes = 10 << 20

type correctionRequest struct {
	Score   *float64 `json:"score" validate:"required"`
	Comment string   `json:"comment" validate:"max=2000"`
}

func (h *Handler) handleTeacherHomeworks(w http.ResponseWriter, r *http.Request) {
	hws, err := h.svc.TeacherHomeworks(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hws)
}

func (h *Handler) handleCreateHomework(w http.ResponseWriter, r *http.Request) {
	var req model.HomeworkImport
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	hw, err := h.svc.CreateHomework(r.Context(), model.UserFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hw)
}

func (h *Handler) handleUploadHomeworks(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, fmt.Errorf("%w: file too large", grading.ErrValidation))
		return
	}
	file, header, err := r.FormFile("homework_file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: no file uploaded", grading.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	ids, err := h.svc.ImportHomeworkFile(r.Context(), model.UserFromContext(r.Context()), header.Filename, data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("uploaded homework file", "filename", header.Filename, "count", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{"homework_ids": ids})
}

func (h *Handler) handleDeleteHomework(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteHomework(r.Context(), model.UserFromContext(r.Context()), homeworkID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req model.QuestionImport
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.svc.AddQuestion(r.Context(), model.UserFromContext(r.Context()), homeworkID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleHomeworkStudents(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	students, err := h.svc.HomeworkStudents(r.Context(), model.UserFromContext(r.Context()), homeworkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) handleStudentDetail(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	studentID, err := urlID(r, "studentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.StudentDetail(r.Context(), model.UserFromContext(r.Context()), homeworkID, studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRequestRegrade(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	studentID, err := urlID(r, "studentID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RequestRegrade(r.Context(), model.UserFromContext(r.Context()), homeworkID, studentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(model.ResultPending)})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	exp, err := h.svc.Export(r.Context(), model.UserFromContext(r.Context()), homeworkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) handleCorrectScore(w http.ResponseWriter, r *http.Request) {
	h.handleCorrection(w, r, h.svc.CorrectAnswer)
}

func (h *Handler) handleCorrectSubjective(w http.ResponseWriter, r *http.Request) {
	h.handleCorrection(w, r, h.svc.CorrectSubjective)
}

type correctFunc func(ctx context.Context, teacher *model.User, answerID int64, score float64, comment string) error

func (h *Handler) handleCorrection(w http.ResponseWriter, r *http.Request, correct correctFunc) {
	answerID, err := urlID(r, "answerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req correctionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := correct(r.Context(), model.UserFromContext(r.Context()), answerID, *req.Score, req.Comment); err != nil {
		writeError(w, r, err)
		return
	}
	trail, err := h.svc.Corrections(r.Context(), model.UserFromContext(r.Context()), answerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (h *Handler) handleCorrections(w http.ResponseWriter, r *http.Request) {
	answerID, err := urlID(r, "answerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	trail, err := h.svc.Corrections(r.Context(), model.UserFromContext(r.Context()), answerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if !model.UserFromContext(r.Context()).IsVerifiedTeacher() {
		writeError(w, r, fmt.Errorf("%w: verified teacher required", grading.ErrPermission))
		return
	}
	report, err := h.svc.ReconcilePending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
