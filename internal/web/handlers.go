package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"hwtracker/internal/model"
	"hwtracker/internal/service"
)

// homeworkPayload is the request body for creating or editing homework.
// DueDate accepts RFC 3339 or a bare date; a bare date means end of day.
type homeworkPayload struct {
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Subject string `json:"subject"`
	DueDate string `json:"dueDate"`
}

type homeworkResponse struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	Detail    string     `json:"detail,omitempty"`
	SubjectID *uint      `json:"subjectId,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	AuthorID  int64      `json:"authorId"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func toResponse(hw model.Homework) homeworkResponse {
	resp := homeworkResponse{
		ID:        hw.ID,
		Title:     hw.Title,
		Detail:    hw.Detail,
		SubjectID: hw.SubjectID,
		DueDate:   hw.DueDate,
		AuthorID:  hw.AuthorID,
		CreatedAt: hw.CreatedAt,
	}
	if hw.DeletedAt.Valid {
		t := hw.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.hwSvc.Subjects(r.Context())
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, subjects)
}

func (s *Server) handleListHomework(w http.ResponseWriter, r *http.Request) {
	withDeleted, _ := strconv.ParseBool(r.URL.Query().Get("withDeleted"))
	hws, err := s.hwSvc.List(r.Context(), withDeleted)
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]homeworkResponse, 0, len(hws))
	for _, hw := range hws {
		out = append(out, toResponse(hw))
	}
	sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetHomework(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	hw, err := s.hwSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(w, http.StatusNotFound, "homework not found")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, toResponse(*hw))
}

func (s *Server) handleCreateHomework(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeInput(w, r, true)
	if !ok {
		return
	}
	input.AuthorID = authorID(r)

	hw, err := s.hwSvc.Create(r.Context(), input)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	sendJSON(w, http.StatusCreated, toResponse(*hw))
}

func (s *Server) handlePatchHomework(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeInput(w, r, false)
	if !ok {
		return
	}

	hw, err := s.hwSvc.Update(r.Context(), pathID(r), input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(w, http.StatusNotFound, "homework not found")
			return
		}
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, toResponse(*hw))
}

func (s *Server) handleDeleteHomework(w http.ResponseWriter, r *http.Request) {
	hw, err := s.hwSvc.Delete(r.Context(), pathID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(w, http.StatusNotFound, "homework not found")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, toResponse(*hw))
}

func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request, requireTitle bool) (service.HomeworkInput, bool) {
	var payload homeworkPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendError(w, http.StatusBadRequest, "malformed JSON body")
		return service.HomeworkInput{}, false
	}

	if requireTitle && payload.Title == "" {
		sendError(w, http.StatusBadRequest, "title is required")
		return service.HomeworkInput{}, false
	}

	input := service.HomeworkInput{
		Title:       payload.Title,
		Detail:      payload.Detail,
		SubjectCode: payload.Subject,
	}

	if payload.DueDate != "" {
		if due, err := time.Parse(time.RFC3339, payload.DueDate); err == nil {
			input.DueDate = &due
			input.HasDueTime = true
		} else if due, err := time.ParseInLocation("2006-01-02", payload.DueDate, time.Local); err == nil {
			input.DueDate = &due
		} else {
			sendError(w, http.StatusBadRequest, "dueDate must be RFC 3339 or YYYY-MM-DD")
			return service.HomeworkInput{}, false
		}
	}

	return input, true
}

func pathID(r *http.Request) uint {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id)
}

// authorID returns the authenticated Telegram user id, or 0 when the
// token carried no usable sub claim.
func authorID(r *http.Request) int64 {
	id, _ := r.Context().Value(authorKey).(int64)
	return id
}
