package handler

import (
	"net/http"

	"github.com/Yiteng-CHEN/snaplearn/internal/model"
)

type submitAnswerRequest struct {
	Answer model.Answer `json:"answer"`
}

type submitHomeworkRequest struct {
	Answers map[string]model.Answer `json:"answers" validate:"required"`
}

type reportMistakeRequest struct {
	QuestionID int64 `json:"question_id" validate:"required,gt=0"`
	Correct    *bool `json:"correct" validate:"required"`
}

func (h *Handler) handleListHomeworks(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListHomeworks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, err := urlID(r, "questionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.SubmitAnswer(r.Context(), model.UserFromContext(r.Context()), questionID, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSubmitHomework(w http.ResponseWriter, r *http.Request) {
	homeworkID, err := urlID(r, "homeworkID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitHomeworkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.svc.SubmitHomework(r.Context(), model.UserFromContext(r.Context()), homeworkID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleSubmitHomeworkByVideo(w http.ResponseWriter, r *http.Request) {
	videoID, err := urlID(r, "videoID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitHomeworkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.svc.SubmitHomeworkByVideo(r.Context(), model.UserFromContext(r.Context()), videoID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleRequestHint(w http.ResponseWriter, r *http.Request) {
	questionID, err := urlID(r, "questionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hint, err := h.svc.RequestHint(r.Context(), model.UserFromContext(r.Context()), questionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

func (h *Handler) handleHintSolved(w http.ResponseWriter, r *http.Request) {
	questionID, err := urlID(r, "questionID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	times, err := h.svc.ReportHintSolved(r.Context(), model.UserFromContext(r.Context()), questionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question_id": questionID, "solved": true, "times": times})
}

func (h *Handler) handleMistakeBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.MistakeBook(r.Context(), model.UserFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleReportMistake(w http.ResponseWriter, r *http.Request) {
	var req reportMistakeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.ReportMistake(r.Context(), model.UserFromContext(r.Context()), req.QuestionID, *req.Correct); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
