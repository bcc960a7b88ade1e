package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aukilabs/cellgrid/featureflag"
	"github.com/aukilabs/cellgrid/grid"
	"github.com/aukilabs/cellgrid/models"
	"github.com/aukilabs/cellgrid/modules/dagaz"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest = "bad_request"

	// maxBodySize caps request bodies read by the API.
	maxBodySize = 1 << 20
)

// API exposes a space and, unless disabled, a dagaz surface state over
// HTTP.
type API struct {
	Space        *models.Space
	Dagaz        *dagaz.Module
	FeatureFlags featureflag.FeatureFlag
}

// Handler returns the API routes.
func (a *API) Handler() http.Handler {
	var mux http.ServeMux

	mux.HandleFunc("POST /objects", a.handleAddObject)
	mux.HandleFunc("DELETE /objects", a.handleClearObjects)
	mux.HandleFunc("GET /objects/{id}", a.handleGetObject)
	mux.HandleFunc("PUT /objects/{id}", a.handleMoveObject)
	mux.HandleFunc("DELETE /objects/{id}", a.handleRemoveObject)
	mux.HandleFunc("GET /cells/{index}", a.handleGetCell)
	mux.HandleFunc("POST /query/box", a.handleBoxQuery)
	mux.HandleFunc("POST /query/ball", a.handleBallQuery)
	mux.HandleFunc("GET /range", a.handleRange)

	if a.Dagaz != nil {
		a.FeatureFlags.IfNotSet(featureflag.FlagDisableDagaz, func() {
			a.mountDagaz(&mux)
		})
	}

	return &mux
}

type pointRequest struct {
	Point []float64 `json:"point"`
}

type boxQueryRequest struct {
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
	Limit int       `json:"limit,omitempty"`
}

type ballQueryRequest struct {
	Center []float64 `json:"center"`
	Radius float64   `json:"radius"`
	Exact  *bool     `json:"exact,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

type objectsResponse struct {
	Objects []models.Object `json:"objects"`
}

type rangeResponse struct {
	CellSize []float64  `json:"cell_size"`
	Objects  int        `json:"objects"`
	Cells    int        `json:"cells"`
	MinIndex grid.Index `json:"min_index"`
	MaxIndex grid.Index `json:"max_index"`
	Min      []float64  `json:"min"`
	Max      []float64  `json:"max"`
}

func (a *API) handleAddObject(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := a.Space.Add(req.Point)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *API) handleClearObjects(w http.ResponseWriter, r *http.Request) {
	a.Space.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	o, ok := a.Space.Get(id)
	if !ok {
		writeError(w, errors.New("object not found").
			WithType(models.ErrTypeObjectNotFound).
			WithTag("object_id", id))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleMoveObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req pointRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := a.Space.Move(id, req.Point)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) handleRemoveObject(w http.ResponseWriter, r *http.Request) {
	id, err := parseObjectID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !a.Space.Remove(id) {
		writeError(w, errors.New("object not found").
			WithType(models.ErrTypeObjectNotFound).
			WithTag("object_id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetCell(w http.ResponseWriter, r *http.Request) {
	index, err := ParseIndex(r.PathValue("index"))
	if err != nil {
		writeError(w, err)
		return
	}

	objects, err := a.Space.Cell(index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectsResponse{Objects: objects})
}

func (a *API) handleBoxQuery(w http.ResponseWriter, r *http.Request) {
	var req boxQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	objects, err := a.Space.QueryBox(req.Min, req.Max, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectsResponse{Objects: nonNil(objects)})
}

func (a *API) handleBallQuery(w http.ResponseWriter, r *http.Request) {
	var req ballQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	exact := a.ExactBallQueries()
	if req.Exact != nil {
		exact = *req.Exact
	}

	objects, err := a.Space.QueryBall(req.Center, req.Radius, exact, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectsResponse{Objects: nonNil(objects)})
}

func (a *API) handleRange(w http.ResponseWriter, r *http.Request) {
	imin, imax := a.Space.Range()
	min, max := a.Space.Bounds()

	writeJSON(w, http.StatusOK, rangeResponse{
		CellSize: a.Space.CellSize(),
		Objects:  a.Space.Len(),
		Cells:    a.Space.Cells(),
		MinIndex: imin,
		MaxIndex: imax,
		Min:      min,
		Max:      max,
	})
}

// ReadinessCheck fails when the API is missing the state it serves.
func (a *API) ReadinessCheck() error {
	if a.Space == nil {
		return errors.New("object space is not set")
	}

	if a.Dagaz != nil && a.Dagaz.State == nil && !a.FeatureFlags.IsSet(featureflag.FlagDisableDagaz) {
		return errors.New("dagaz state is not set")
	}
	return nil
}

// ExactBallQueries reports whether ball queries filter by distance when the
// request does not say.
func (a *API) ExactBallQueries() bool {
	var exact bool
	a.FeatureFlags.IfSet(featureflag.FlagExactBallQuery, func() {
		exact = true
	})
	return exact
}

// ParseIndex parses a comma separated cell index such as "1,-2,3".
func ParseIndex(s string) (grid.Index, error) {
	parts := strings.Split(s, ",")
	index := make(grid.Index, len(parts))
	for k, p := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("invalid cell index").
				WithType(ErrTypeBadRequest).
				WithTag("index", s).
				Wrap(err)
		}
		index[k] = c
	}
	return index, nil
}

func parseObjectID(r *http.Request) (uint32, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid object id").
			WithType(ErrTypeBadRequest).
			WithTag("object_id", r.PathValue("id")).
			Wrap(err)
	}
	return uint32(id), nil
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.New("reading request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("decoding request body failed").
			WithType(ErrTypeBadRequest).
			Wrap(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logs.Error(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		logs.Error(err)
	}

	writeJSON(w, status, errorResponse{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
}

func statusCode(err error) int {
	switch errors.Type(err) {
	case models.ErrTypeObjectNotFound:
		return http.StatusNotFound

	case ErrTypeBadRequest,
		grid.ErrTypeDimensionMismatch,
		grid.ErrTypeInvertedRange,
		models.ErrTypeInvalidPoint,
		models.ErrTypeInvalidRadius,
		dagaz.ErrTypeMissingField,
		dagaz.ErrTypeInvalidPoint:
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

func nonNil(objects []models.Object) []models.Object {
	if objects == nil {
		return []models.Object{}
	}
	return objects
}
