package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/league-system/middleware"
	"github.com/Dosada05/league-system/services"
)

type AuthHandler struct {
	responder
	authService services.AuthService
	sessions    *middleware.SessionManager
	pages       *Renderer
}

func NewAuthHandler(authService services.AuthService, sessions *middleware.SessionManager, pages *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		responder:   responder{logger: logger},
		authService: authService,
		sessions:    sessions,
		pages:       pages,
	}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, h.pages, "register", PageData{Title: "Register"})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/register", "error", "invalid form")
		return
	}

	_, err := h.authService.Register(r.Context(), services.RegisterInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		h.redirectWithError(w, r, "/register", err)
		return
	}

	redirectWith(w, r, "/login", "message", "account created, please log in")
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, h.pages, "login", PageData{Title: "Log in"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/login", "error", "invalid form")
		return
	}

	user, err := h.authService.Login(r.Context(), services.LoginInput{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		h.redirectWithError(w, r, "/login", err)
		return
	}

	token, expiresAt, err := h.sessions.Issue(middleware.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		h.redirectWithError(w, r, "/login", err)
		return
	}
	h.sessions.SetCookie(w, token, expiresAt)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	redirectWith(w, r, "/", "message", "logged out")
}

// APILogin returns a bearer token for API clients.
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	if input.Username == "" || input.Password == "" {
		h.badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, expiresAt, err := h.sessions.Issue(middleware.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	}
	if err = writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
