package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"hwtracker/internal/model"
	"hwtracker/internal/repository"
	"hwtracker/internal/service"
)

const testSecret = "test-secret"

type stubScheduler struct {
	scheduled []uint
	cancelled []uint
}

func (s *stubScheduler) Schedule(hw model.Homework) error {
	s.scheduled = append(s.scheduled, hw.ID)
	return nil
}

func (s *stubScheduler) Cancel(id uint) {
	s.cancelled = append(s.cancelled, id)
}

func newTestServer(t *testing.T) (*Server, *stubScheduler) {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:web%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sched := &stubScheduler{}
	svc := service.NewHomeworkService(
		repository.NewHomeworkRepository(db),
		repository.NewSubjectRepository(db),
		sched,
	)
	return NewServer(":0", svc, testSecret), sched
}

func testToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/homeworks", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d without token, want 401", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/homeworks", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d with bad token, want 401", rec.Code)
	}
}

func TestCreateListDelete(t *testing.T) {
	srv, sched := newTestServer(t)
	token := testToken(t, "1")

	rec := doRequest(t, srv, http.MethodPost, "/homeworks", token, map[string]string{
		"title":   "read chapter 4",
		"detail":  "pages 80-110",
		"dueDate": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var created homeworkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0] != created.ID {
		t.Errorf("scheduled = %v, want [%d]", sched.scheduled, created.ID)
	}

	rec = doRequest(t, srv, http.MethodGet, "/homeworks", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []homeworkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].Title != "read chapter 4" {
		t.Errorf("listed = %+v, want the created item", listed)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/homeworks/%d", created.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(sched.cancelled) != 1 || sched.cancelled[0] != created.ID {
		t.Errorf("cancelled = %v, want [%d]", sched.cancelled, created.ID)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/homeworks/%d", created.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	// Gone from the default listing, still visible with withDeleted.
	rec = doRequest(t, srv, http.MethodGet, "/homeworks", token, nil)
	listed = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 0 {
		t.Errorf("default listing after delete = %+v, want empty", listed)
	}
	rec = doRequest(t, srv, http.MethodGet, "/homeworks?withDeleted=true", token, nil)
	listed = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].DeletedAt == nil {
		t.Errorf("withDeleted listing = %+v, want the soft-deleted item", listed)
	}
}

func TestCreateValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := testToken(t, "1")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{"detail": "x"}},
		{"bad due date", map[string]string{"title": "x", "dueDate": "tomorrow-ish"}},
		{"oversized detail", map[string]string{"title": "x", "detail": strings.Repeat("z", 400)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/homeworks", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestPatchReschedules(t *testing.T) {
	srv, sched := newTestServer(t)
	token := testToken(t, "1")

	rec := doRequest(t, srv, http.MethodPost, "/homeworks", token, map[string]string{
		"title":   "presentation",
		"dueDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created homeworkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	sched.scheduled = nil

	rec = doRequest(t, srv, http.MethodPatch, fmt.Sprintf("/homeworks/%d", created.ID), token, map[string]string{
		"title":   "presentation (moved)",
		"dueDate": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body)
	}
	if len(sched.cancelled) != 1 || len(sched.scheduled) != 1 {
		t.Errorf("cancelled=%v scheduled=%v, want one of each", sched.cancelled, sched.scheduled)
	}
}

func TestGetMissingHomework(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/homeworks/999", testToken(t, "1"), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCreateRecordsTokenAuthor(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/homeworks", testToken(t, "777"), map[string]string{
		"title": "group project",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var created homeworkResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.AuthorID != 777 {
		t.Errorf("author id = %d, want 777 from the token's sub claim", created.AuthorID)
	}
}
