package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ResourceDirectory/src/resource"
	"ResourceDirectory/src/types"

	"github.com/rs/zerolog"
)

type Querier interface {
	Get(ctx context.Context, q types.ResourceQuery) (map[string]*resource.Resource, error)
	GetAllResources(ctx context.Context, area *types.AreaSpecifier) (map[string]*resource.Resource, error)
	GetResourceByID(ctx context.Context, id string) (*resource.Resource, error)
	ClearResourceCache()
}

type Persister interface {
	SubmitResource(ctx context.Context, r *resource.Resource) (string, error)
	DeleteResourceByID(ctx context.Context, id string) error
}

// Indexer keeps the search index in step with the store.
type Indexer interface {
	IndexResource(ctx context.Context, id string, r *resource.Resource) error
	RemoveResource(ctx context.Context, id string) error
}

type ResourceHandler struct {
	query   Querier
	persist Persister
	index   Indexer
	logger  zerolog.Logger
}

// NewResourceHandler builds the handler. index may be nil.
func NewResourceHandler(q Querier, p Persister, index Indexer, logger zerolog.Logger) *ResourceHandler {
	return &ResourceHandler{
		query:   q,
		persist: p,
		index:   index,
		logger:  logger.With().Str("component", "ResourceHandler").Logger(),
	}
}

// Register mounts the read routes on mux and the write routes behind protect.
func (h *ResourceHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/resources", h.HandleQuery)
	mux.HandleFunc("GET /api/resources/all", h.HandleGetAll)
	mux.HandleFunc("GET /api/resources/{id}", h.HandleGetByID)
	mux.Handle("POST /api/resources", protect(http.HandlerFunc(h.HandleSubmit)))
	mux.Handle("DELETE /api/resources/{id}", protect(http.HandlerFunc(h.HandleDelete)))
}

type LocationView struct {
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Address  string   `json:"address,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

type ResourceView struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Tags     []string       `json:"tags"`
	Location *LocationView  `json:"location,omitempty"`
	Details  types.Document `json:"details,omitempty"`
}

type Resources struct {
	Total     int            `json:"total"`
	Resources []ResourceView `json:"resources"`
}

type SubmitRequest struct {
	Name     string         `json:"name"`
	Tags     []string       `json:"tags"`
	Location *LocationView  `json:"location"`
	Details  types.Document `json:"details"`
}

func newResourceView(id string, r *resource.Resource) ResourceView {
	v := ResourceView{ID: id, Name: r.Name, Tags: r.Tags}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if loc := r.Location; loc != nil {
		v.Location = &LocationView{Address: loc.Address, Distance: loc.Distance}
		if loc.GeoPoint != nil {
			lat, lon := loc.GeoPoint.Lat, loc.GeoPoint.Lon
			v.Location.Lat, v.Location.Lon = &lat, &lon
		}
	}
	return v
}

func newResources(m map[string]*resource.Resource) Resources {
	out := Resources{Total: len(m), Resources: make([]ResourceView, 0, len(m))}
	for id, r := range m {
		out.Resources = append(out.Resources, newResourceView(id, r))
	}
	return out
}

// parseArea reads lat, lon and distance. All three or none must be given.
func parseArea(r *http.Request) (*types.AreaSpecifier, error) {
	params := r.URL.Query()
	latStr, lonStr, distStr := params.Get("lat"), params.Get("lon"), params.Get("distance")
	if latStr == "" && lonStr == "" && distStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" || distStr == "" {
		return nil, errors.New("lat, lon and distance must be given together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid latitude")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, errors.New("invalid longitude")
	}
	dist, err := strconv.ParseFloat(distStr, 64)
	if err != nil {
		return nil, errors.New("invalid distance")
	}
	return &types.AreaSpecifier{Latitude: lat, Longitude: lon, DistanceMeters: dist}, nil
}

func parseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (h *ResourceHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	area, err := parseArea(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := types.ResourceQuery{
		Text: strings.TrimSpace(r.URL.Query().Get("text")),
		Area: area,
		Tags: parseTags(r.URL.Query().Get("tags")),
	}

	found, err := h.query.Get(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newResources(found))
}

func (h *ResourceHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	area, err := parseArea(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	found, err := h.query.GetAllResources(r.Context(), area)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newResources(found))
}

func (h *ResourceHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := h.query.GetResourceByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	details, err := found.Details(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	view := newResourceView(id, found)
	view.Details = details
	h.writeJSON(w, http.StatusOK, view)
}

func (h *ResourceHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Missing name", http.StatusBadRequest)
		return
	}

	var opts []resource.Option
	if req.Location != nil {
		var point *types.GeoPoint
		switch {
		case req.Location.Lat != nil && req.Location.Lon != nil:
			point = &types.GeoPoint{Lat: *req.Location.Lat, Lon: *req.Location.Lon}
		case req.Location.Lat != nil || req.Location.Lon != nil:
			http.Error(w, "lat and lon must be given together", http.StatusBadRequest)
			return
		}
		loc, err := types.NewLocation(point, req.Location.Address)
		if err != nil {
			h.writeError(w, err)
			return
		}
		opts = append(opts, resource.WithLocation(loc))
	}
	res, err := resource.New(req.Name, req.Tags, opts...)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// New listings get a store-assigned identifier.
	delete(req.Details, types.ListingReferenceField)
	res.SetDetails(req.Details)

	id, err := h.persist.SubmitResource(r.Context(), res)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.index != nil {
		if err := h.index.IndexResource(r.Context(), id, res); err != nil {
			h.logger.Warn().Err(err).Str("id", id).Msg("Search index update failed")
		}
	}
	h.query.ClearResourceCache()

	h.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.persist.DeleteResourceByID(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	if h.index != nil {
		if err := h.index.RemoveResource(r.Context(), id); err != nil {
			h.logger.Warn().Err(err).Str("id", id).Msg("Search index removal failed")
		}
	}
	h.query.ClearResourceCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResourceHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		http.Error(w, "Resource not found", http.StatusNotFound)
	case errors.Is(err, types.ErrInvalidLocation), errors.Is(err, types.ErrInvalidArea):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *ResourceHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Error encoding response")
	}
}
