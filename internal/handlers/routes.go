package handlers

import (
	"net/http"

	"docflow/internal/middleware"
	"docflow/internal/models"
)

// RegisterRoutes mounts the configuration and correspondence endpoints on mux
func RegisterRoutes(mux *http.ServeMux, authMw *middleware.AuthMiddleware, documentHandler *DocumentHandler, configHandler *ConfigHandler) {
	mux.HandleFunc("GET /api/v1/config/app", configHandler.GetAppConfig)
	mux.HandleFunc("GET /api/v1/config/workflow", configHandler.GetWorkflow)

	authed := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(h)
	}
	base := DocumentsAPIBasePath

	mux.Handle("GET "+base, authed(documentHandler.ListDocuments))
	mux.Handle("POST "+base+"/incoming", authed(documentHandler.CreateIncoming))
	mux.Handle("POST "+base+"/outgoing", authed(documentHandler.CreateOutgoing))
	mux.Handle("GET "+base+"/{id}", authed(documentHandler.GetDocument))
	mux.Handle("GET "+base+"/{id}/actions", authed(documentHandler.GetAllowedActions))
	mux.Handle("GET "+base+"/{id}/history",
		authMw.Authenticate(
			middleware.RequireAnyRole(models.RoleAdmin, models.RoleBoshqaruv, models.RoleBankApparati)(
				http.HandlerFunc(documentHandler.GetHistory),
			),
		),
	)

	mux.Handle("POST "+base+"/{id}/register", authed(documentHandler.Register))
	mux.Handle("POST "+base+"/{id}/send-to-resolution", authed(documentHandler.SendToResolution))
	mux.Handle("POST "+base+"/{id}/resolve", authed(documentHandler.Resolve))
	mux.Handle("POST "+base+"/{id}/submit-review", authed(documentHandler.SubmitForReview))
	mux.Handle("POST "+base+"/{id}/approve-review", authed(documentHandler.ApproveReview))
	mux.Handle("POST "+base+"/{id}/reject-review", authed(documentHandler.RejectReview))
	mux.Handle("POST "+base+"/{id}/assign", authed(documentHandler.AssignExecutor))
	mux.Handle("POST "+base+"/{id}/delegate", authed(documentHandler.DelegateInternal))
	mux.Handle("POST "+base+"/{id}/sign", authed(documentHandler.Sign))
	mux.Handle("POST "+base+"/{id}/dispatch", authed(documentHandler.Dispatch))
	mux.Handle("POST "+base+"/{id}/hold", authed(documentHandler.Hold))
	mux.Handle("POST "+base+"/{id}/cancel", authed(documentHandler.Cancel))
	mux.Handle("POST "+base+"/{id}/archive", authed(documentHandler.Archive))
	mux.Handle("PUT "+base+"/{id}/deadline", authed(documentHandler.UpdateDeadline))
	mux.Handle("PUT "+base+"/{id}/executors", authed(documentHandler.UpdateExecutors))
}
