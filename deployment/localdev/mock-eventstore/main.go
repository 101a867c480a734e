package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type event struct {
	CaseID    string    `json:"case_id"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
	Resource  string    `json:"resource"`
}

// Fixed timestamps keep daily summaries stable across restarts.
var base = time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

func demoEvents() []event {
	return []event{
		{CaseID: "ord-2001", Activity: "Create PO", Timestamp: base, Resource: "alice"},
		{CaseID: "ord-2001", Activity: "Approve PO", Timestamp: base.Add(90 * time.Minute), Resource: "dave"},
		{CaseID: "ord-2001", Activity: "Receive Goods", Timestamp: base.Add(26 * time.Hour), Resource: "bob"},
		{CaseID: "ord-2001", Activity: "Pay Invoice", Timestamp: base.Add(49 * time.Hour), Resource: "carol"},

		{CaseID: "ord-2002", Activity: "Create PO", Timestamp: base.Add(30 * time.Minute), Resource: "alice"},
		{CaseID: "ord-2002", Activity: "Receive Goods", Timestamp: base.Add(20 * time.Hour), Resource: "bob"},
		{CaseID: "ord-2002", Activity: "Pay Invoice", Timestamp: base.Add(44 * time.Hour), Resource: "carol"},

		{CaseID: "ord-2003", Activity: "Create PO", Timestamp: base.Add(2 * time.Hour), Resource: "erin"},
		{CaseID: "ord-2003", Activity: "Approve PO", Timestamp: base.Add(3 * time.Hour), Resource: "dave"},
		{CaseID: "ord-2003", Activity: "Amend PO", Timestamp: base.Add(5 * time.Hour), Resource: "erin"},
		{CaseID: "ord-2003", Activity: "Approve PO", Timestamp: base.Add(7 * time.Hour), Resource: "dave"},
		{CaseID: "ord-2003", Activity: "Receive Goods", Timestamp: base.Add(30 * time.Hour), Resource: "bob"},
		{CaseID: "ord-2003", Activity: "Pay Invoice", Timestamp: base.Add(52 * time.Hour), Resource: "carol"},

		{CaseID: "ord-2004", Activity: "Create PO", Timestamp: base.Add(25 * time.Hour), Resource: "alice"},
		{CaseID: "ord-2004", Activity: "Approve PO", Timestamp: base.Add(27 * time.Hour), Resource: "dave"},
		{CaseID: "ord-2004", Activity: "Receive Goods", Timestamp: base.Add(50 * time.Hour), Resource: "bob"},
		{CaseID: "ord-2004", Activity: "Pay Invoice", Timestamp: base.Add(170 * time.Hour), Resource: "carol"},
	}
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if !enforceGet(w, r) {
			return
		}
		writeJSON(w, map[string]any{"events": demoEvents()})
	})

	mux.HandleFunc("/api/v1/resource-errors", func(w http.ResponseWriter, r *http.Request) {
		if !enforceGet(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"errors": map[string]int{
				"bob":   2,
				"carol": 1,
			},
		})
	})

	logger := log.New(log.Writer(), "eventstore-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8081",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforceGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
