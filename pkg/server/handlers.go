package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/manwithacat/dazzle-sub014/pkg/audit"
	"github.com/manwithacat/dazzle-sub014/pkg/invariant"
	"github.com/manwithacat/dazzle-sub014/pkg/policy"
	"github.com/manwithacat/dazzle-sub014/pkg/ruleset"
	"github.com/manwithacat/dazzle-sub014/pkg/statemachine"
)

type principalPayload struct {
	ID        string   `json:"id"`
	Roles     []string `json:"roles"`
	Persona   string   `json:"persona"`
	Superuser bool     `json:"superuser"`
}

func (p *principalPayload) auth() *policy.AuthContext {
	return &policy.AuthContext{
		PrincipalID: p.ID,
		Roles:       p.Roles,
		Persona:     p.Persona,
		Superuser:   p.Superuser,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// decodeBody decodes a JSON request body with json.Number preserved.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

func (s *Server) lookupEntity(w http.ResponseWriter, name string) (*ruleset.Entity, bool) {
	if name == "" {
		writeError(w, http.StatusBadRequest, "entity is required")
		return nil, false
	}
	ent, ok := s.registry.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown entity %q", name)
		return nil, false
	}
	return ent, true
}

type authorizeRequest struct {
	Entity    string           `json:"entity"`
	Operation string           `json:"operation"`
	Principal principalPayload `json:"principal"`
	recordPayload
}

type authorizeResponse struct {
	Outcome string `json:"outcome"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	ent, ok := s.lookupEntity(w, req.Entity)
	if !ok {
		return
	}

	op := policy.Operation(req.Operation)
	switch op {
	case policy.OperationCreate, policy.OperationRead, policy.OperationUpdate, policy.OperationDelete:
	default:
		writeError(w, http.StatusBadRequest, "unknown operation %q", req.Operation)
		return
	}

	record, err := s.buildContext(ent, &req.recordPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	start := time.Now()
	decision, err := s.engine.Authorize(r.Context(), ent.Policy, op,
		&policy.Input{Record: record, Auth: req.Principal.auth()})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "evaluation failed: %v", err)
		return
	}
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordDecision(ent.Name, string(op), string(decision.Outcome), string(decision.Reason), elapsed)
	}
	if s.recorder != nil {
		rec := audit.NewRecord(audit.EventDecision)
		rec.Entity = ent.Name
		rec.Operation = string(op)
		rec.Principal = req.Principal.ID
		rec.Persona = req.Principal.Persona
		rec.Outcome = string(decision.Outcome)
		rec.Rule = decision.Rule
		rec.Bypass = decision.Reason == policy.ReasonSuperuser
		s.recorder.Record(rec)
	}

	writeJSON(w, http.StatusOK, authorizeResponse{
		Outcome: string(decision.Outcome),
		Rule:    decision.Rule,
		Reason:  string(decision.Reason),
	})
}

type checkRequest struct {
	Entity    string           `json:"entity"`
	Principal principalPayload `json:"principal"`
	recordPayload
	Changes map[string]any `json:"changes"`
}

type violationPayload struct {
	Invariant string `json:"invariant"`
	Message   string `json:"message"`
}

type checkResponse struct {
	Valid      bool               `json:"valid"`
	Violations []violationPayload `json:"violations,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	ent, ok := s.lookupEntity(w, req.Entity)
	if !ok {
		return
	}

	record, err := s.buildContext(ent, &req.recordPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if len(req.Changes) > 0 {
		changes, err := decodeRecord(ent.Schema, req.Changes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "changes: %v", err)
			return
		}
		record.Record = invariant.Merge(record.Record, changes)
	}

	violations, err := s.checker.Check(r.Context(), ent.Invariants, record)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "evaluation failed: %v", err)
		return
	}

	resp := checkResponse{Valid: len(violations) == 0}
	for _, v := range violations {
		resp.Violations = append(resp.Violations, violationPayload{Invariant: v.Invariant, Message: v.Message})
		if s.metrics != nil {
			s.metrics.RecordInvariantViolation(ent.Name, v.Invariant)
		}
	}
	if len(violations) > 0 && s.recorder != nil {
		rec := audit.NewRecord(audit.EventInvariantViolation)
		rec.Entity = ent.Name
		rec.Principal = req.Principal.ID
		rec.Persona = req.Principal.Persona
		rec.Outcome = "violated"
		rec.Detail = invariant.Violations(violations).Error()
		s.recorder.Record(rec)
	}

	writeJSON(w, http.StatusOK, resp)
}

type transitionRequest struct {
	Entity    string           `json:"entity"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Trigger   string           `json:"trigger"`
	Principal principalPayload `json:"principal"`
	recordPayload
}

type transitionResponse struct {
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	ent, ok := s.lookupEntity(w, req.Entity)
	if !ok {
		return
	}
	if ent.Machine == nil {
		writeError(w, http.StatusNotFound, "entity %q declares no state machine", ent.Name)
		return
	}

	record, err := s.buildContext(ent, &req.recordPayload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	outcome, evalErr := s.transitions.Evaluate(r.Context(), ent.Machine, &statemachine.Request{
		From:    req.From,
		To:      req.To,
		Trigger: req.Trigger,
		Record:  record,
		Auth:    req.Principal.auth(),
	})

	resp := transitionResponse{Outcome: string(outcome)}
	if evalErr != nil {
		var invalid *statemachine.InvalidTransitionError
		var guard *statemachine.GuardNotSatisfiedError
		switch {
		case errors.As(evalErr, &invalid), errors.As(evalErr, &guard):
			resp.Detail = evalErr.Error()
		default:
			writeError(w, http.StatusUnprocessableEntity, "evaluation failed: %v", evalErr)
			return
		}
	}

	if outcome != statemachine.TransitionOK {
		if s.metrics != nil {
			s.metrics.RecordGuardRejection(ent.Name, string(outcome))
		}
		if s.recorder != nil {
			rec := audit.NewRecord(audit.EventGuardRejection)
			rec.Entity = ent.Name
			rec.Operation = fmt.Sprintf("%s->%s", req.From, req.To)
			rec.Principal = req.Principal.ID
			rec.Persona = req.Principal.Persona
			rec.Outcome = string(outcome)
			rec.Detail = resp.Detail
			s.recorder.Record(rec)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type entitiesResponse struct {
	Entities []string `json:"entities"`
	Version  string   `json:"version"`
	LoadedAt string   `json:"loaded_at"`
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entitiesResponse{
		Entities: s.registry.Names(),
		Version:  s.registry.Version(),
		LoadedAt: s.registry.LoadTime().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditStorage == nil {
		writeError(w, http.StatusNotFound, "audit storage is not enabled")
		return
	}

	q := r.URL.Query()
	filter := &audit.Filter{
		Entity:    q.Get("entity"),
		Event:     audit.EventKind(q.Get("event")),
		Principal: q.Get("principal"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since: %v", err)
			return
		}
		filter.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until: %v", err)
			return
		}
		filter.Until = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	records, err := s.auditStorage.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit query failed: %v", err)
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

type healthResponse struct {
	Status   string `json:"status"`
	Entities int    `json:"entities"`
	Version  string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.registry.Count() == 0 {
		status = "empty"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   status,
		Entities: s.registry.Count(),
		Version:  s.registry.Version(),
	})
}
