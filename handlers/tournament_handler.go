package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/services"
)

const maxLogoSize = 5 << 20

type TournamentHandler struct {
	responder
	tournamentService services.TournamentService
	pages             *Renderer
	uploadsEnabled    bool
}

func NewTournamentHandler(s services.TournamentService, pages *Renderer, uploadsEnabled bool, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{
		responder:         responder{logger: logger},
		tournamentService: s,
		pages:             pages,
		uploadsEnabled:    uploadsEnabled,
	}
}

func tournamentPath(id int) string {
	return fmt.Sprintf("/tournament/%d", id)
}

// GET /tournament/{id}
func (h *TournamentHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}

	tournament, err := h.tournamentService.GetDetails(r.Context(), id)
	if err != nil {
		h.redirectWithError(w, r, "/dashboard", err)
		return
	}

	identity, _ := middleware.IdentityFromContext(r.Context())
	data := PageData{
		Title:          tournament.Name,
		Tournament:     tournament,
		IsOwner:        tournament.OwnerID == identity.UserID,
		UploadsEnabled: h.uploadsEnabled,
	}
	for _, p := range tournament.Participants {
		if p.UserID == identity.UserID {
			data.IsMember = true
			break
		}
	}
	h.renderPage(w, r, h.pages, "tournament", data)
}

// POST /tournament/create
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/dashboard", "error", "invalid form")
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), identity.UserID, r.PostForm.Get("name"))
	if err != nil {
		h.redirectWithError(w, r, "/dashboard", err)
		return
	}
	redirectWith(w, r, tournamentPath(tournament.ID), "message", "tournament created")
}

// POST /tournament/join/{id}
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	id, err := getIDFromURL(r, "id")
	if err != nil {
		redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}

	added, err := h.tournamentService.Join(r.Context(), identity.UserID, id)
	if err != nil {
		target := tournamentPath(id)
		if errors.Is(err, services.ErrTournamentNotFound) {
			target = "/dashboard"
		}
		h.redirectWithError(w, r, target, err)
		return
	}

	message := "joined the tournament"
	if !added {
		message = "you are already a member"
	}
	redirectWith(w, r, tournamentPath(id), "message", message)
}

// POST /tournament/generate/{id}
func (h *TournamentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	id, err := getIDFromURL(r, "id")
	if err != nil {
		redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}

	fixtures, err := h.tournamentService.GenerateFixtures(r.Context(), identity.UserID, id)
	if err != nil {
		h.redirectWithError(w, r, h.errorTarget(id, err), err)
		return
	}
	redirectWith(w, r, tournamentPath(id), "message", fmt.Sprintf("%d fixtures generated", len(fixtures)))
}

// POST /tournament/score/{id}
func (h *TournamentHandler) Score(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	id, err := getIDFromURL(r, "id")
	if err != nil {
		redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}
	if err = r.ParseForm(); err != nil {
		redirectWith(w, r, tournamentPath(id), "error", "invalid form")
		return
	}

	input, err := parseResultForm(r)
	if err != nil {
		h.redirectWithError(w, r, tournamentPath(id), err)
		return
	}

	outcome, err := h.tournamentService.RecordResult(r.Context(), identity.UserID, id, input)
	if err != nil {
		h.redirectWithError(w, r, h.errorTarget(id, err), err)
		return
	}
	redirectWith(w, r, tournamentPath(id), "message", fmt.Sprintf("result saved: %s %d-%d %s",
		outcome.Fixture.Home, outcome.Fixture.HomeScore, outcome.Fixture.AwayScore, outcome.Fixture.Away))
}

func parseResultForm(r *http.Request) (services.ResultInput, error) {
	addr, err := services.ParseFixtureAddress(r.PostForm.Get("index"), r.PostForm.Get("fixture_id"))
	if err != nil {
		return services.ResultInput{}, err
	}
	home, err := services.ParseScore(r.PostForm.Get("home_score"))
	if err != nil {
		return services.ResultInput{}, err
	}
	away, err := services.ParseScore(r.PostForm.Get("away_score"))
	if err != nil {
		return services.ResultInput{}, err
	}
	return services.ResultInput{Fixture: addr, HomeScore: home, AwayScore: away}, nil
}

// POST /tournament/logo/{id}
func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	id, err := getIDFromURL(r, "id")
	if err != nil {
		redirectWith(w, r, "/dashboard", "error", err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoSize+1024)
	if err = r.ParseMultipartForm(maxLogoSize); err != nil {
		redirectWith(w, r, tournamentPath(id), "error", "logo is missing or too large")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		redirectWith(w, r, tournamentPath(id), "error", "logo file is required")
		return
	}
	defer file.Close()

	_, err = h.tournamentService.UploadLogo(r.Context(), identity.UserID, id, services.LogoInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.redirectWithError(w, r, h.errorTarget(id, err), err)
		return
	}
	redirectWith(w, r, tournamentPath(id), "message", "logo updated")
}

// errorTarget sends the user back to the tournament page unless it does not exist.
func (h *TournamentHandler) errorTarget(id int, err error) string {
	if errors.Is(err, services.ErrTournamentNotFound) {
		return "/dashboard"
	}
	return tournamentPath(id)
}

// GET /api/tournaments/{id}
func (h *TournamentHandler) APIGet(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetDetails(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err = writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// GET /api/tournaments/{id}/standings
func (h *TournamentHandler) APIStandings(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	standings, err := h.tournamentService.GetStandings(r.Context(), id)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
