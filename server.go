package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"i4.energy/across/bluetooth/hc05"
)

// Server handles incoming HTTP requests for interacting with the
// configured module instance
type Server struct {
	Logger *slog.Logger
	Module *hc05.Module
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("PUT /name", s.handleName)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// moduleError maps a module failure onto an HTTP status.
func (s *Server) moduleError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hc05.ErrPrecondition):
		status = http.StatusBadRequest
	case errors.Is(err, hc05.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, hc05.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	s.Logger.Error(msg, "error", err)
	s.sendError(w, err.Error(), status)
}

type status struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Version string `json:"version"`
	Role    string `json:"role"`
	State   string `json:"state"`
}

func readStatus(ctx context.Context, m *hc05.Module) (status, error) {
	var st status
	var err error

	if st.Name, err = m.Name(ctx); err != nil {
		return st, err
	}
	if st.Address, err = m.Address(ctx); err != nil {
		return st, err
	}
	if st.Version, err = m.Version(ctx); err != nil {
		return st, err
	}
	role, err := m.Role(ctx)
	if err != nil {
		return st, err
	}
	st.Role = role.String()
	state, err := m.State(ctx)
	if err != nil {
		return st, err
	}
	st.State = state.String()
	return st, nil
}

// handleStatus reports the identity and connection state of the module
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := readStatus(r.Context(), s.Module)
	if err != nil {
		s.moduleError(w, "Failed to read module status", err)
		return
	}
	s.sendJSON(w, st)
}

// handleConfig reports the UART parameters of the module
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	p, err := s.Module.SerialParameters(r.Context())
	if err != nil {
		s.moduleError(w, "Failed to read serial parameters", err)
		return
	}

	type ConfigResponse struct {
		BaudRate uint32 `json:"baud_rate"`
		StopBit  string `json:"stop_bit"`
		Parity   string `json:"parity"`
	}
	s.sendJSON(w, ConfigResponse{
		BaudRate: p.BaudRate,
		StopBit:  p.StopBit.String(),
		Parity:   p.Parity.String(),
	})
}

// handleName renames the module
func (s *Server) handleName(w http.ResponseWriter, r *http.Request) {
	type NameRequest struct {
		Name string `json:"name"`
	}

	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Module.SetName(r.Context(), req.Name); err != nil {
		s.moduleError(w, "Failed to set name", err)
		return
	}

	s.Logger.Info("Module renamed", "name", req.Name)
	w.WriteHeader(http.StatusNoContent)
}

// handleMessage sends a data mode message to the connected peer
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	type MessageRequest struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		s.sendError(w, "'message' field is required", http.StatusBadRequest)
		return
	}

	mode, err := hc05.ParseTransferMode(req.Mode)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Module.SendMessage(r.Context(), mode, []byte(req.Message)); err != nil {
		s.moduleError(w, "Failed to send message", err)
		return
	}

	s.Logger.Info("Message sent", "mode", mode, "message_length", len(req.Message))
	if mode == hc05.ModeBlocking {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
