package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/services"
)

type DashboardHandler struct {
	responder
	tournamentService services.TournamentService
	pages             *Renderer
}

func NewDashboardHandler(s services.TournamentService, pages *Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{responder: responder{logger: logger}, tournamentService: s, pages: pages}
}

func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, h.pages, "home", PageData{Title: "Welcome"})
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	tournaments, err := h.tournamentService.ListForUser(r.Context(), id.UserID)
	if err != nil {
		h.redirectWithError(w, r, "/", err)
		return
	}

	h.renderPage(w, r, h.pages, "dashboard", PageData{Title: "Dashboard", Tournaments: tournaments})
}

func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "ok"}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
