package http

import (
	"fmt"
	"github.com/beldeveloper/ecomet/internal/app"
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/go-errors-context"
	"github.com/julienschmidt/httprouter"
	"io"
	"net/http"
)

// MaxComposeSize limits the compose file accepted by the API.
const MaxComposeSize = 1 << 20

// NewHandler creates a new instance of the REST API handler.
func NewHandler(
	dbInfo app.DBInfoSvc,
	repoRepo app.RepositoryRepo,
	composeSvc app.ComposeSvc,
	health app.HealthSvc,
	accessKey app.ApiAccessKey,
) Handler {
	return Handler{
		dbInfo:     dbInfo,
		repoRepo:   repoRepo,
		composeSvc: composeSvc,
		health:     health,
		accessKey:  string(accessKey),
	}
}

// Handler handles the REST API requests.
type Handler struct {
	dbInfo     app.DBInfoSvc
	repoRepo   app.RepositoryRepo
	composeSvc app.ComposeSvc
	health     app.HealthSvc
	accessKey  string
}

// DBVersion returns the version of the Postgres server.
func (h Handler) DBVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	err := h.validateKey(r)
	if err != nil {
		apiError(w, err)
		return
	}
	logger.Infof("requesting database version")
	res, err := h.dbInfo.Version(r.Context())
	if err != nil {
		apiError(w, err)
		return
	}
	apiSuccess(w, res)
}

// Repositories returns the stored top repositories.
func (h Handler) Repositories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	err := h.validateKey(r)
	if err != nil {
		apiError(w, err)
		return
	}
	res, err := h.repoRepo.FindAll(r.Context())
	if err != nil {
		apiError(w, err)
		return
	}
	apiSuccess(w, res)
}

// Repository returns a single stored repository.
func (h Handler) Repository(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.validateKey(r)
	if err != nil {
		apiError(w, err)
		return
	}
	res, err := h.repoRepo.FindByName(r.Context(), ps.ByName("owner"), ps.ByName("name"))
	if err != nil {
		apiError(w, err)
		return
	}
	apiSuccess(w, res)
}

// ValidateCompose validates the compose file sent as the request body.
// Warnings don't fail the request; errors give 422 with the issues in the details.
func (h Handler) ValidateCompose(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	err := h.validateKey(r)
	if err != nil {
		apiError(w, err)
		return
	}
	data, err := readBody(r)
	if err != nil {
		apiError(w, err)
		return
	}
	rep, err := h.composeSvc.Validate(r.Context(), data)
	if err != nil {
		apiError(w, fmt.Errorf("%w: %v", errtype.ErrBadInput, err))
		return
	}
	if !rep.Valid() {
		apiError(w, errtype.WithDetails(rep.Err(), errtype.Details{"issues": rep.Issues}))
		return
	}
	apiSuccess(w, rep)
}

// ComposeOrder returns the startup levels of the compose file sent as the request body.
func (h Handler) ComposeOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	err := h.validateKey(r)
	if err != nil {
		apiError(w, err)
		return
	}
	data, err := readBody(r)
	if err != nil {
		apiError(w, err)
		return
	}
	levels, err := h.composeSvc.StartupOrder(r.Context(), data)
	if err != nil {
		apiError(w, fmt.Errorf("%w: %v", errtype.ErrBadInput, err))
		return
	}
	apiSuccess(w, map[string]interface{}{"levels": levels})
}

// Liveness answers as long as the process serves requests.
func (h Handler) Liveness(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	apiSuccess(w, map[string]string{"status": "ok"})
}

// Readiness reports whether every dependency passed the last health check.
func (h Handler) Readiness(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	ready, failed := h.health.Status()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "failed": failed})
		return
	}
	apiSuccess(w, map[string]string{"status": "ready"})
}

func (h Handler) validateKey(r *http.Request) error {
	if h.accessKey != "" && r.URL.Query().Get("accessKey") != h.accessKey {
		return errors.WrapContext(errtype.ErrUnauthorized, errors.Context{Path: "http.Handler.validateKey"})
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxComposeSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errtype.ErrBadInput, err)
	}
	if len(data) > MaxComposeSize {
		return nil, fmt.Errorf("%w: the body exceeds %d bytes", errtype.ErrBadInput, MaxComposeSize)
	}
	return data, nil
}
