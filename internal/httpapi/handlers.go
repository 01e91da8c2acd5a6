package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/gorilla/mux"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "connected",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			code = http.StatusServiceUnavailable
		}
	}
	respondWithJSON(w, code, resp)
}

func tenantOf(r *http.Request) string { return r.Header.Get(HeaderTenant) }

func actorOf(r *http.Request) string {
	if a := r.Header.Get(HeaderActor); a != "" {
		return a
	}
	return "api"
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type planResponse struct {
	Plan     *domain.Plan   `json:"plan"`
	Items    []*domain.Item `json:"items"`
	Replaced int            `json:"replaced,omitempty"`
}

func (s *Server) generateCampaign(w http.ResponseWriter, r *http.Request) {
	var origin domain.CampaignOrigin
	if err := decodeJSON(r, &origin); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !s.claimTenant(w, &origin.TenantID, tenantOf(r)) {
		return
	}
	s.generate(w, r, &origin)
}

func (s *Server) generateScan(w http.ResponseWriter, r *http.Request) {
	var origin domain.ScanOrigin
	if err := decodeJSON(r, &origin); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if !s.claimTenant(w, &origin.TenantID, tenantOf(r)) {
		return
	}
	s.generate(w, r, &origin)
}

// claimTenant fills an empty body tenant from the header and rejects a
// body that names another tenant.
func (s *Server) claimTenant(w http.ResponseWriter, bodyTenant *string, header string) bool {
	if *bodyTenant == "" {
		*bodyTenant = header
		return true
	}
	if *bodyTenant != header {
		respondWithError(w, http.StatusForbidden, "tenant_id does not match "+HeaderTenant)
		return false
	}
	return true
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, origin domain.Origin) {
	req := service.GenerateRequest{
		Origin:     origin,
		Actor:      actorOf(r),
		Regenerate: r.URL.Query().Get("regenerate") == "true",
	}
	res, err := s.plans.Generate(r.Context(), req)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, planResponse{Plan: res.Plan, Items: res.Items, Replaced: res.Replaced})
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	tenant := tenantOf(r)
	if q := r.URL.Query().Get("tenant"); q != "" && q != tenant {
		respondWithError(w, http.StatusForbidden, "tenant does not match "+HeaderTenant)
		return
	}
	plans, err := s.plans.ListByTenant(r.Context(), tenant)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if plans == nil {
		plans = []*domain.Plan{}
	}
	respondWithJSON(w, http.StatusOK, plans)
}

// loadPlan fetches a plan owned by the caller's tenant. Plans of other
// tenants are reported as missing.
func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (*domain.Plan, bool) {
	id := mux.Vars(r)["id"]
	plan, err := s.plans.GetByID(r.Context(), id)
	if err == nil && plan.TenantID != tenantOf(r) {
		err = &domain.NotFoundError{Entity: "plan", ID: id}
	}
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return nil, false
	}
	return plan, true
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	items, err := s.plans.ListItems(r.Context(), plan.ID)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, planResponse{Plan: plan, Items: items})
}

func (s *Server) publishPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	res, err := s.publisher.Publish(r.Context(), service.PublishRequest{PlanID: plan.ID, Actor: actorOf(r)})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	code := http.StatusCreated
	if res.AlreadyPublished {
		code = http.StatusOK
	}
	respondWithJSON(w, code, res)
}

func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (*domain.Item, bool) {
	id := mux.Vars(r)["id"]
	item, err := s.review.GetItem(r.Context(), id)
	if err == nil && item.TenantID != tenantOf(r) {
		err = &domain.NotFoundError{Entity: "item", ID: id}
	}
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return nil, false
	}
	return item, true
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

var reviewActions = map[string]struct{}{"": {}, "validate": {}, "exclude": {}, "include": {}, "reopen": {}}

// itemPatch combines a content edit, a manual assignment and a review
// decision. Parts are applied in that order, each in its own transaction.
type itemPatch struct {
	Edit     *domain.ItemEdit `json:"edit"`
	Assignee *domain.Assignee `json:"assignee"`
	Action   string           `json:"action"`
}

func (s *Server) patchItem(w http.ResponseWriter, r *http.Request) {
	var patch itemPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if patch.Edit == nil && patch.Assignee == nil && patch.Action == "" {
		respondWithError(w, http.StatusBadRequest, "nothing to change")
		return
	}
	action := strings.ToLower(patch.Action)
	if _, known := reviewActions[action]; !known {
		s.respondWithDomainError(w, r, domain.NewValidationError("item patch", "action", "must be one of validate, exclude, include, reopen"))
		return
	}
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var err error
	if patch.Edit != nil {
		if item, err = s.review.Edit(ctx, item.ID, *patch.Edit); err != nil {
			s.respondWithDomainError(w, r, err)
			return
		}
	}
	if patch.Assignee != nil {
		if item, err = s.review.Assign(ctx, item.ID, *patch.Assignee); err != nil {
			s.respondWithDomainError(w, r, err)
			return
		}
	}
	switch action {
	case "":
	case "validate":
		item, err = s.review.Validate(ctx, item.ID)
	case "exclude":
		item, err = s.review.Exclude(ctx, item.ID)
	case "include":
		item, err = s.review.SetIncluded(ctx, item.ID, true)
	case "reopen":
		item, err = s.review.Reopen(ctx, item.ID)
	}
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ActionFilter{
		TenantID:   tenantOf(r),
		SourceType: domain.SourceType(q.Get("source_type")),
		PlanID:     q.Get("plan_id"),
	}
	actions, err := s.actions.List(r.Context(), f)
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	if actions == nil {
		actions = []*domain.PublishedAction{}
	}
	respondWithJSON(w, http.StatusOK, actions)
}

type createActionRequest struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Objective     string           `json:"objective"`
	Severity      string           `json:"severity"`
	Priority      string           `json:"priority"`
	DueDays       int              `json:"due_days"`
	SuggestedRole string           `json:"suggested_role"`
	Assignee      *domain.Assignee `json:"assignee"`
	EntityID      string           `json:"entity_id"`
	EntityName    string           `json:"entity_name"`
}

func (s *Server) createAction(w http.ResponseWriter, r *http.Request) {
	var req createActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	action, err := s.actions.CreateStandalone(r.Context(), service.StandaloneInput{
		TenantID:      tenantOf(r),
		Title:         req.Title,
		Description:   req.Description,
		Objective:     req.Objective,
		Severity:      req.Severity,
		Priority:      req.Priority,
		DueDays:       req.DueDays,
		SuggestedRole: req.SuggestedRole,
		Assignee:      req.Assignee,
		EntityID:      req.EntityID,
		EntityName:    req.EntityName,
		Actor:         actorOf(r),
	})
	if err != nil {
		s.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, action)
}
