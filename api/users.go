package api

import (
	"time"

	"github.com/adeilh/minutes/auth"
	"github.com/adeilh/minutes/httpx"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned by login and refresh; Token is the bearer value.
type sessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newSessionResponse(tok auth.SessionToken) sessionResponse {
	d := tok.Descriptor()
	return sessionResponse{Token: d.ID, UserID: d.Subject, ExpiresAt: d.ExpiresAt}
}

func (a *API) register(c httpx.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := a.users.Register(c.Request().Context(), req.Username, req.Email, []byte(req.Password))
	if err != nil {
		return httpError(err)
	}
	a.log.WithField("user", user.ID).Info("user registered")
	return c.JSON(httpx.StatusCreated, user)
}

func (a *API) login(c httpx.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	desc := auth.SessionDescriptor{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
	tok, err := a.users.Login(c.Request().Context(), req.Email, []byte(req.Password), desc)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, newSessionResponse(tok))
}

func (a *API) refresh(c httpx.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	tok, err := a.users.Refresh(c.Request().Context(), session.Descriptor().ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, newSessionResponse(tok))
}

func (a *API) logout(c httpx.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := a.users.Logout(c.Request().Context(), session.Descriptor().ID); err != nil {
		return httpError(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

func (a *API) me(c httpx.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	user, err := a.users.Get(c.Request().Context(), session.Descriptor().Subject)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(httpx.StatusOK, user)
}

func currentSession(c httpx.Context) (auth.SessionToken, error) {
	session, ok := auth.SessionFromContext(c.Request().Context())
	if !ok {
		return nil, httpx.HTTPError(httpx.StatusUnauthorized, "session required")
	}
	return session, nil
}
