package handlers

import (
	"net/http"

	"docflow/internal/config"
	"docflow/internal/models"
	"docflow/internal/workflow"
)

// ConfigHandler handles configuration requests
type ConfigHandler struct {
	config     *config.Config
	authorizer *workflow.Authorizer
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, authorizer *workflow.Authorizer) *ConfigHandler {
	return &ConfigHandler{
		config:     cfg,
		authorizer: authorizer,
	}
}

// StageInfo describes one lifecycle stage
type StageInfo struct {
	Stage      models.Stage   `json:"stage"`
	Terminal   bool           `json:"terminal"`
	Successors []models.Stage `json:"successors"`
}

// ActionInfo describes who may run an action and from which stages
type ActionInfo struct {
	Action workflow.Action `json:"action"`
	Roles  []models.Role   `json:"roles"`
	Stages []models.Stage  `json:"stages"`
	Target models.Stage    `json:"target,omitempty"`
}

// WorkflowResponse is the public description of the lifecycle
type WorkflowResponse struct {
	Stages  []StageInfo  `json:"stages"`
	Actions []ActionInfo `json:"actions"`
}

// GetAppConfig returns the public app configuration for the frontend
// @Summary Get app configuration
// @Tags Configuration
// @Produce json
// @Success 200 {object} map[string]interface{} "App configuration"
// @Router /config/app [get]
func (h *ConfigHandler) GetAppConfig(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"name":    h.config.App.Name,
		"version": h.config.App.Version,
		"env":     h.config.App.Env,
	})
}

// GetWorkflow returns the stage graph and the action rules
// @Summary Get workflow definition
// @Description Stages with their legal successors, and the role and stage rules of every action
// @Tags Configuration
// @Produce json
// @Success 200 {object} WorkflowResponse
// @Router /config/workflow [get]
func (h *ConfigHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	var resp WorkflowResponse
	for _, s := range workflow.Stages() {
		resp.Stages = append(resp.Stages, StageInfo{
			Stage:      s,
			Terminal:   workflow.IsTerminal(s),
			Successors: workflow.Successors(s),
		})
	}
	for _, a := range workflow.Actions() {
		rule, ok := h.authorizer.Rule(a)
		if !ok {
			continue
		}
		resp.Actions = append(resp.Actions, ActionInfo{
			Action: a,
			Roles:  rule.Roles,
			Stages: rule.Stages,
			Target: rule.Target,
		})
	}
	respondWithJSON(w, http.StatusOK, resp)
}
