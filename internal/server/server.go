// Package server exposes the published snapshot over HTTP. All reads go
// through the snapshot holder, so an ingestion run swapping in a new
// snapshot never disturbs in-flight requests.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/rules"
	"github.com/opencurb/curb-cli/internal/snapshot"
	"github.com/opencurb/curb-cli/internal/store"
	"github.com/opencurb/curb-cli/pkg/geocode"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// Server serves legality queries against the current snapshot.
type Server struct {
	holder *snapshot.Holder
	store  store.Store      // optional, for /runs
	cache  *interpret.Cache // optional, enriches explanations
	geo    *geocode.Client
}

// New creates a query server over the given snapshot holder.
func New(holder *snapshot.Holder, st store.Store, cache *interpret.Cache) *Server {
	return &Server{holder: holder, store: st, cache: cache, geo: geocode.NewClient(2)}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/segments/{centerlineID}/{side}", s.handleSegment)
	r.Get("/segments/near", s.handleNear)
	r.Post("/check", s.handleCheck)
	r.Get("/runs", s.handleRuns)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.holder.Current()
	resp := map[string]any{"status": "ok"}
	if snap != nil {
		resp["run_id"] = snap.RunID
		resp["segments"] = snap.Len()
	} else {
		resp["status"] = "no snapshot"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot published")
		return
	}

	sd := model.Side(chi.URLParam(r, "side"))
	if sd != model.SideLeft && sd != model.SideRight {
		writeError(w, http.StatusBadRequest, "side must be left or right")
		return
	}

	seg := snap.Get(chi.URLParam(r, "centerlineID"), sd)
	if seg == nil {
		writeError(w, http.StatusNotFound, "segment not found")
		return
	}
	writeJSON(w, http.StatusOK, s.segmentView(seg))
}

func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot published")
		return
	}

	lng, lat, err := parseCoords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius := 50.0
	if v := r.URL.Query().Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 || radius > 500 {
			writeError(w, http.StatusBadRequest, "radius must be in (0, 500] meters")
			return
		}
	}

	segs := snap.Near(lng, lat, radius)
	views := make([]any, 0, len(segs))
	for _, seg := range segs {
		views = append(views, s.segmentView(seg))
	}
	writeJSON(w, http.StatusOK, map[string]any{"segments": views})
}

type checkRequest struct {
	Lng             float64 `json:"lng"`
	Lat             float64 `json:"lat"`
	Address         string  `json:"address"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"duration_minutes"`
	RadiusMeters    float64 `json:"radius_meters"`
}

type checkResponse struct {
	CenterlineID string               `json:"centerline_id"`
	Side         model.Side           `json:"side"`
	StreetName   string               `json:"street_name"`
	Result       model.LegalityResult `json:"result"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot published")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}
	if req.Address != "" {
		res, err := s.geo.Geocode(r.Context(), req.Address)
		if err != nil {
			zap.L().Error("server: geocode failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "geocoding failed")
			return
		}
		if res == nil {
			writeError(w, http.StatusNotFound, "no geocoder match for address")
			return
		}
		req.Lng, req.Lat = res.Longitude, res.Latitude
	}
	when := time.Now()
	if req.Time != "" {
		var err error
		when, err = time.Parse(time.RFC3339, req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be RFC3339")
			return
		}
	}
	radius := req.RadiusMeters
	if radius <= 0 {
		radius = 50
	}

	segs := snap.Near(req.Lng, req.Lat, radius)
	if len(segs) == 0 {
		writeError(w, http.StatusNotFound, "no street segment within radius")
		return
	}

	results := make([]checkResponse, 0, len(segs))
	for _, seg := range segs {
		results = append(results, checkResponse{
			CenterlineID: seg.CenterlineID,
			Side:         seg.Side,
			StreetName:   seg.StreetName,
			Result:       rules.Evaluate(seg, when, req.DurationMinutes),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"checked_at": when, "results": results})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "no store configured")
		return
	}
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		zap.L().Error("server: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// segmentView augments a segment with any cached plain-language rule
// interpretations.
func (s *Server) segmentView(seg *model.StreetSegment) map[string]any {
	view := map[string]any{
		"centerline_id": seg.CenterlineID,
		"side":          seg.Side,
		"street_name":   seg.StreetName,
		"from_street":   seg.FromStreet,
		"to_street":     seg.ToStreet,
		"rules":         seg.Rules,
	}
	if s.cache != nil {
		summaries := map[string]string{}
		for _, rule := range seg.Rules {
			if rule.InterpretKey == "" {
				continue
			}
			if in := s.cache.Lookup(rule.InterpretKey); in != nil {
				summaries[rule.InterpretKey] = in.Summary
			}
		}
		if len(summaries) > 0 {
			view["interpretations"] = summaries
		}
	}
	return view
}

// ListenAndServe runs the server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down query server")
		_ = srv.Close()
	}()

	zap.L().Info("starting query server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func parseCoords(r *http.Request) (lng, lat float64, err error) {
	lng, err = strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err != nil {
		return 0, 0, eris.New("lng is required")
	}
	lat, err = strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return 0, 0, eris.New("lat is required")
	}
	return lng, lat, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
