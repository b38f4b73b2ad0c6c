// Package web serves the companion form API: a small JSON surface for
// listing subjects and managing homework. Every mutation goes through
// the homework service so the reminder cascade stays in sync.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"

	"hwtracker/internal/service"
)

// Server is the HTTP frontend.
type Server struct {
	router *mux.Router
	hwSvc  *service.HomeworkService
	secret []byte
	srv    *http.Server
}

func NewServer(addr string, hwSvc *service.HomeworkService, jwtSecret string) *Server {
	s := &Server{
		router: mux.NewRouter(),
		hwSvc:  hwSvc,
		secret: []byte(jwtSecret),
	}
	s.routes()
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.authMiddleware)
	s.router.HandleFunc("/subjects", s.handleSubjects).Methods(http.MethodGet)
	s.router.HandleFunc("/homeworks", s.handleListHomework).Methods(http.MethodGet)
	s.router.HandleFunc("/homeworks", s.handleCreateHomework).Methods(http.MethodPost)
	s.router.HandleFunc("/homeworks/{id:[0-9]+}", s.handleGetHomework).Methods(http.MethodGet)
	s.router.HandleFunc("/homeworks/{id:[0-9]+}", s.handlePatchHomework).Methods(http.MethodPatch)
	s.router.HandleFunc("/homeworks/{id:[0-9]+}", s.handleDeleteHomework).Methods(http.MethodDelete)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] web shutdown: %v", err)
		}
	}()

	log.Printf("[INFO] web form going online at %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	log.Println("[INFO] web server has shut down")
	return nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// authMiddleware validates the signed token the bot hands out. The token
// may arrive as a Bearer header or a ?token= query parameter (the form
// link uses the latter).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("token")
		if raw == "" {
			header := r.Header.Get("Authorization")
			raw = strings.TrimPrefix(header, "Bearer ")
			if raw == header {
				raw = ""
			}
		}
		if raw == "" {
			sendError(w, http.StatusUnauthorized, "missing token")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			sendError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// The bot puts the Telegram user id in the sub claim; creation
		// handlers record it as the author.
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, ok := claims["sub"].(string); ok {
				if id, err := strconv.ParseInt(sub, 10, 64); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), authorKey, id))
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const authorKey ctxKey = iota

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, status int, msg string) {
	sendJSON(w, status, map[string]string{"message": msg})
}
