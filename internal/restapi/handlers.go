// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jitaccess/jitaccess/internal/analysis"
	"github.com/jitaccess/jitaccess/internal/catalog"
	"github.com/jitaccess/jitaccess/internal/deferral"
	"github.com/jitaccess/jitaccess/internal/jiterrors"
	"github.com/jitaccess/jitaccess/internal/join"
	"github.com/jitaccess/jitaccess/internal/logging"
	"github.com/jitaccess/jitaccess/internal/principal"
	"github.com/jitaccess/jitaccess/internal/subject"
)

// joinStatus enumerates the group-detail response's status values
// (spec §6 "GET .../groups/{name}").
type joinStatus string

const (
	statusJoined                    joinStatus = "JOINED"
	statusJoinDisallowed             joinStatus = "JOIN_DISALLOWED"
	statusJoinAllowedWithApproval     joinStatus = "JOIN_ALLOWED_WITH_APPROVAL"
	statusJoinAllowedWithoutApproval joinStatus = "JOIN_ALLOWED_WITHOUT_APPROVAL"
)

// Handlers implements the REST surface over a Catalog and Subject
// Resolver.
type Handlers struct {
	catalog  *catalog.Catalog
	resolver *subject.Resolver
	signer   deferral.TokenSigner
	now      func() time.Time
}

// NewHandlers builds Handlers. now defaults to time.Now when nil.
// signer mints deferral tokens for joins that require approval
// (spec §6 "POST .../groups/{name} ... when required, yields a
// deferral token").
func NewHandlers(cat *catalog.Catalog, resolver *subject.Resolver, signer deferral.TokenSigner, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{catalog: cat, resolver: resolver, signer: signer, now: now}
}

// Mount registers every route on mux.
func (h *Handlers) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /environments", h.listEnvironments)
	mux.HandleFunc("GET /environments/{env}", h.getEnvironment)
	mux.HandleFunc("GET /environments/{env}/policy", h.exportPolicy)
	mux.HandleFunc("GET /environments/{env}/status", h.reconcileStatus)
	mux.HandleFunc("GET /environments/{env}/systems/{sys}", h.getSystem)
	mux.HandleFunc("GET /environments/{env}/systems/{sys}/groups/{name}", h.getGroup)
	mux.HandleFunc("POST /environments/{env}/systems/{sys}/groups/{name}", h.postGroup)
}

func (h *Handlers) subjectFrom(r *http.Request) (principal.Subject, error) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		return principal.Subject{}, jiterrors.AccessDenied()
	}
	return h.resolver.Resolve(r.Context(), identity.UserEmail)
}

func (h *Handlers) listEnvironments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Environments())
}

func (h *Handlers) getEnvironment(w http.ResponseWriter, r *http.Request) {
	subj, err := h.subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.catalog.Environment(r.Context(), subj, r.PathValue("env"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        env.Name(),
		"description": env.Description(),
	})
}

func (h *Handlers) exportPolicy(w http.ResponseWriter, r *http.Request) {
	subj, err := h.subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.catalog.Environment(r.Context(), subj, r.PathValue("env"))
	if err != nil {
		writeError(w, err)
		return
	}
	text, source, lastModified, err := env.Export()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":         text,
		"source":       source,
		"lastModified": lastModified,
	})
}

func (h *Handlers) reconcileStatus(w http.ResponseWriter, r *http.Request) {
	subj, err := h.subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.catalog.Environment(r.Context(), subj, r.PathValue("env"))
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := env.Reconcile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) getSystem(w http.ResponseWriter, r *http.Request) {
	subj, err := h.subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.catalog.Environment(r.Context(), subj, r.PathValue("env"))
	if err != nil {
		writeError(w, err)
		return
	}
	sys, ok := env.System(r.PathValue("sys"))
	if !ok {
		writeError(w, jiterrors.NotFound("system", r.PathValue("sys")))
		return
	}
	groups := sys.Groups()
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.ID().Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        sys.Name(),
		"description": sys.Description(),
		"groups":      names,
	})
}

func (h *Handlers) resolveGroupView(w http.ResponseWriter, r *http.Request) (*catalog.JitGroupView, principal.Subject, bool) {
	subj, err := h.subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return nil, principal.Subject{}, false
	}
	env, err := h.catalog.Environment(r.Context(), subj, r.PathValue("env"))
	if err != nil {
		writeError(w, err)
		return nil, principal.Subject{}, false
	}
	sys, ok := env.System(r.PathValue("sys"))
	if !ok {
		writeError(w, jiterrors.NotFound("system", r.PathValue("sys")))
		return nil, principal.Subject{}, false
	}
	grp, ok := sys.Group(r.PathValue("name"))
	if !ok {
		writeError(w, jiterrors.NotFound("group", r.PathValue("name")))
		return nil, principal.Subject{}, false
	}
	return grp, subj, true
}

func (h *Handlers) getGroup(w http.ResponseWriter, r *http.Request) {
	view, _, ok := h.resolveGroupView(w, r)
	if !ok {
		return
	}

	op, err := join.New(view, h.now())
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := op.DryRun()
	if err != nil {
		writeError(w, err)
		return
	}

	var status joinStatus
	switch {
	case result.ActiveMembership != nil:
		status = statusJoined
	case !result.Allowed(analysis.IgnoreConstraints):
		status = statusJoinDisallowed
	case op.State() == join.SelfApprovable:
		status = statusJoinAllowedWithoutApproval
	default:
		status = statusJoinAllowedWithApproval
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group":  view.ID().String(),
		"status": status,
	})
}

// postGroupRequest is the POST .../groups/{name} request body: input
// properties bound to the join's constraints, plus the assignees a
// deferral token should be minted for when approval is required.
type postGroupRequest struct {
	Input     map[string]string `json:"input"`
	Assignees []string          `json:"assignees"`
}

func (h *Handlers) postGroup(w http.ResponseWriter, r *http.Request) {
	view, _, ok := h.resolveGroupView(w, r)
	if !ok {
		return
	}

	var body postGroupRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	op, err := join.New(view, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	for name, value := range body.Input {
		op.SetInput(name, value)
	}

	if op.State() == join.SelfApprovable {
		membership, err := op.Execute(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		logging.AccessDecision(r.Context(), logging.FromContext(r.Context()), "join_executed",
			view.ID().String(), "expiry", membership.Expiry())

		writeJSON(w, http.StatusOK, map[string]any{
			"group":  membership.JitGroupID(),
			"expiry": membership.Expiry(),
		})
		return
	}

	if len(body.Assignees) == 0 {
		writeError(w, jiterrors.InvalidInput("assignees", "at least one assignee is required when approval is required"))
		return
	}

	token, expiry, err := deferral.Defer(op, body.Assignees, h.signer)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.AccessDecision(r.Context(), logging.FromContext(r.Context()), "join_deferred",
		view.ID().String(), "assignees", body.Assignees)

	writeJSON(w, http.StatusOK, map[string]any{
		"group":   view.ID().String(),
		"token":   token,
		"expiry":  expiry,
		"pending": true,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the jiterrors taxonomy onto the response shapes
// spec §6 "Error responses" describes: access-denied and not-found
// collapse to the same outer response to avoid leaking existence;
// invalid input is 400-class with the property name; constraint
// failures are 403.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case jiterrors.IsCollapsible(err):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": jiterrors.CollapsedMessage})
	case errors.Is(err, jiterrors.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, jiterrors.ErrConstraintUnsatisfied), errors.Is(err, jiterrors.ErrConstraintFailed):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, jiterrors.ErrUnsupported):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
