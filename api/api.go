// Package api exposes the meeting and account services over HTTP. Handlers
// are registered on an httpx.App and translate domain errors into status
// codes before the httpx error handler renders them.
package api

import (
	"errors"
	"net/http"

	"github.com/apex/log"

	"github.com/adeilh/minutes/auth"
	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/httpx"
	"github.com/adeilh/minutes/meeting"
)

var ErrMissingDependency = errors.New("api: missing dependency")

// Config wires the services behind the routes.
type Config struct {
	Meetings *meeting.Service
	Users    *auth.UserService
	Sessions auth.SessionResolver
	Cache    *cache.Manager
	Logger   log.Interface
}

// API holds the handlers. Register it with httpx.Server.RegisterRoutes.
type API struct {
	meetings *meeting.Service
	users    *auth.UserService
	cache    *cache.Manager
	bearer   httpx.MiddlewareFunc
	log      log.Interface
}

func New(cfg Config) (*API, error) {
	if cfg.Meetings == nil || cfg.Users == nil || cfg.Sessions == nil {
		return nil, ErrMissingDependency
	}
	mw, err := auth.NewMiddleware(cfg.Sessions)
	if err != nil {
		return nil, err
	}
	a := &API{
		meetings: cfg.Meetings,
		users:    cfg.Users,
		cache:    cfg.Cache,
		bearer:   httpx.AuthMiddleware(mw),
		log:      cfg.Logger,
	}
	if a.log == nil {
		a.log = log.Log
	}
	return a, nil
}

// Register mounts every route on app.
func (a *API) Register(app *httpx.App) {
	app.GET("/healthz", a.health)

	app.POST("/users", a.register)
	app.GET("/users/me", a.me, a.bearer)
	app.POST("/auth/login", a.login)
	app.POST("/auth/refresh", a.refresh, a.bearer)
	app.POST("/auth/logout", a.logout, a.bearer)

	app.GET("/templates", a.listTemplates)
	app.GET("/templates/:id", a.getTemplate)

	m := httpx.NewRouter(app, "/meetings")
	m.GET("", a.listMeetings).
		POST("", a.createMeeting).
		GET("/:id", a.getMeeting).
		PATCH("/:id", a.updateMeeting).
		GET("/:id/full", a.getFull).
		GET("/:id/tasks", a.listTasks)

	m.Group("/:id/recording").
		GET("/status", a.recordingStatus).
		POST("/start", a.startRecording).
		POST("/stop", a.stopRecording)

	m.Group("/:id/sections").
		GET("", a.listSections).
		GET("/status", a.sectionsStatus).
		PATCH("/:sid", a.updateSection).
		GET("/:sid/items", a.listItems).
		PATCH("/:sid/items/:iid", a.updateItem)
}

func (a *API) health(c httpx.Context) error {
	return c.JSON(httpx.StatusOK, map[string]any{
		"status":        "ok",
		"cache_enabled": a.cache.Enabled(),
	})
}

// httpError maps domain errors onto HTTP errors. Anything unrecognised is
// passed through and becomes a 500.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	status := 0
	switch {
	case errors.Is(err, meeting.ErrMeetingNotFound),
		errors.Is(err, meeting.ErrSectionNotFound),
		errors.Is(err, meeting.ErrItemNotFound),
		errors.Is(err, meeting.ErrTemplateNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		status = httpx.StatusNotFound
	case errors.Is(err, meeting.ErrInvalidInput),
		errors.Is(err, auth.ErrUserInvalidInput):
		status = httpx.StatusBadRequest
	case errors.Is(err, auth.ErrUserEmailInUse),
		errors.Is(err, meeting.ErrAlreadyRecording),
		errors.Is(err, meeting.ErrNotRecording):
		status = httpx.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired):
		status = httpx.StatusUnauthorized
	case errors.Is(err, auth.ErrSessionsUnavailable):
		status = httpx.StatusServiceUnavailable
	default:
		return err
	}
	return httpx.HTTPError(status, err.Error())
}

func bind(c httpx.Context, dest any) error {
	if err := c.Bind(dest); err != nil {
		return httpx.HTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}
