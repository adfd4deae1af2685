package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRemoteClient(t *testing.T) {
	var got GradeRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /grade", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(GradeResult{Score: 2, Comment: "ok"})
	})
	mux.HandleFunc("POST /ask", func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(AskResponse{Answer: "hint for " + req.Question})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewRemote(srv.URL+"/", time.Second)
	res, err := c.Grade(context.Background(), GradeRequest{Question: "q", Answer: "a", ReferenceAnswer: "r", MaxScore: 4})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if res.Score != 2 || res.Comment != "ok" {
		t.Errorf("Grade = %+v", res)
	}
	if got.MaxScore != 4 || got.ReferenceAnswer != "r" {
		t.Errorf("server received %+v", got)
	}

	hint, err := c.Ask(context.Background(), "loops")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if hint != "hint for loops" {
		t.Errorf("Ask = %q", hint)
	}
}

func TestRemoteClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewRemote(srv.URL, 100*time.Millisecond)
			if _, err := c.Grade(context.Background(), GradeRequest{}); !errors.Is(err, ErrBackend) {
				t.Errorf("Grade error = %v, want ErrBackend", err)
			}
		})
	}

	c := NewRemote("http://127.0.0.1:1", 100*time.Millisecond)
	if _, err := c.Ask(context.Background(), "q"); !errors.Is(err, ErrBackend) {
		t.Errorf("unreachable Ask error = %v, want ErrBackend", err)
	}
}
