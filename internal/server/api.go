package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sjawhar/interview-coach/internal/device"
	"github.com/sjawhar/interview-coach/internal/report"
	"github.com/sjawhar/interview-coach/internal/session"
	"github.com/sjawhar/interview-coach/internal/transcript"
)

// Engine is the session surface exposed over HTTP.
type Engine interface {
	AcquireDevices(ctx context.Context) (device.Status, error)
	ToggleCamera(ctx context.Context) (device.Status, error)
	ToggleMic(ctx context.Context) (device.Status, error)
	Start(ctx context.Context) error
	End(ctx context.Context) error
	SubmitAnswer(ctx context.Context, text string) (transcript.Entry, error)
	Snapshot(ctx context.Context) (session.Snapshot, error)
	Transcript() []transcript.Entry
	Export() transcript.Document
}

// Reporter delivers an exported transcript to its configured sinks.
type Reporter interface {
	Publish(ctx context.Context, doc transcript.Document) (report.Result, error)
}

const maxAnswerBytes = 64 << 10

type answerRequest struct {
	Text string `json:"text"`
}

func registerAPIRoutes(mux *http.ServeMux, opts Options) {
	engine := opts.Engine
	gate := opts.Gate

	mux.HandleFunc("POST /api/devices/acquire", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		status, err := engine.AcquireDevices(r.Context())
		if err != nil {
			writeEngineError(w, "acquire devices", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}))

	mux.HandleFunc("POST /api/devices/camera/toggle", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		status, err := engine.ToggleCamera(r.Context())
		if err != nil {
			writeEngineError(w, "toggle camera", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}))

	mux.HandleFunc("POST /api/devices/mic/toggle", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		status, err := engine.ToggleMic(r.Context())
		if err != nil {
			writeEngineError(w, "toggle microphone", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}))

	mux.HandleFunc("POST /api/session/start", func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Start(r.Context()); err != nil {
			writeEngineError(w, "start session", err)
			return
		}
		writeSnapshot(w, r, engine)
	})

	mux.HandleFunc("POST /api/session/end", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		if err := engine.End(r.Context()); err != nil {
			writeEngineError(w, "end session", err)
			return
		}
		writeSnapshot(w, r, engine)
	}))

	mux.HandleFunc("POST /api/session/answer", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnswerBytes)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode answer: %v", err))
			return
		}
		entry, err := engine.SubmitAnswer(r.Context(), req.Text)
		if err != nil {
			writeEngineError(w, "submit answer", err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}))

	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		writeSnapshot(w, r, engine)
	})

	mux.HandleFunc("GET /api/transcript", func(w http.ResponseWriter, r *http.Request) {
		entries := engine.Transcript()
		if entries == nil {
			entries = []transcript.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	mux.HandleFunc("GET /api/transcript/export", func(w http.ResponseWriter, r *http.Request) {
		body := engine.Export().Render()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", opts.ReportFilename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})

	mux.HandleFunc("POST /api/transcript/export", requireAuth(gate, func(w http.ResponseWriter, r *http.Request) {
		if opts.Reports == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "report export not configured")
			return
		}
		result, err := opts.Reports.Publish(r.Context(), engine.Export())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("export transcript: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func writeSnapshot(w http.ResponseWriter, r *http.Request, engine Engine) {
	snap, err := engine.Snapshot(r.Context())
	if err != nil {
		writeEngineError(w, "snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, device.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyAnswer):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrEngineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, op string, err error) {
	writeJSONError(w, statusForError(err), fmt.Sprintf("%s: %v", op, err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(msg)})
}
