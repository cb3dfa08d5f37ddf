package webd

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/studio0rpiment/wayside/conceptual"
	"github.com/studio0rpiment/wayside/correction"
	"github.com/studio0rpiment/wayside/metrics/influxdb"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/recognition"
	"github.com/studio0rpiment/wayside/resolver"
	"github.com/studio0rpiment/wayside/selector"
	"github.com/studio0rpiment/wayside/types/world"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *WebDaemon) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func getRequestExperienceID(r *http.Request) conceptual.ExperienceID {
	return conceptual.ExperienceID(mux.Vars(r)["id"])
}

type webDaemonStatus struct {
	StartedAt   time.Time               `json:"started_at"`
	Uptime      string                  `json:"uptime"`
	Config      *params.WebDaemonConfig `json:"config"`
	WSOpen      bool                    `json:"ws_open"`
	WSConns     int                     `json:"ws_conns"`
	Anchors     int                     `json:"anchors"`
	Debug       bool                    `json:"debug"`
	Corrections bool                    `json:"corrections"`
	Counts      resolver.Counts         `json:"counts"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	st := webDaemonStatus{
		StartedAt:   s.started,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Config:      s.Config,
		WSOpen:      !s.closed.Load(),
		WSConns:     s.melodyInstance.Len(),
		Anchors:     s.resolver.Registry().Len(),
		Debug:       s.resolver.Debug().Enabled(),
		Corrections: s.resolver.Registry().Oracle().Enabled(),
		Counts:      s.resolver.Counts(),
	}
	s.writeJSON(w, st)
}

func (s *WebDaemon) handleAnchors(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.resolver.Registry().All())
}

func (s *WebDaemon) handleAnchor(w http.ResponseWriter, r *http.Request) {
	a, ok := s.resolver.Registry().Get(getRequestExperienceID(r))
	if !ok {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	s.writeJSON(w, a)
}

func (s *WebDaemon) handleAnchorDiff(w http.ResponseWriter, r *http.Request) {
	d, ok := s.resolver.Registry().DiffFromOriginal(getRequestExperienceID(r))
	if !ok {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	s.writeJSON(w, d)
}

type updateGPSRequest struct {
	GPS       orb.Point `json:"gps"`
	Elevation *float64  `json:"elevation,omitempty"`
}

func (s *WebDaemon) handleUpdateGPS(w http.ResponseWriter, r *http.Request) {
	id := getRequestExperienceID(r)
	reg := s.resolver.Registry()
	if _, ok := reg.Get(id); !ok {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	req := updateGPSRequest{}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	if !reg.UpdateGPS(id, req.GPS, req.Elevation) {
		http.Error(w, "Invalid position", http.StatusUnprocessableEntity)
		return
	}
	a, _ := reg.Get(id)
	s.writeJSON(w, a)
}

func (s *WebDaemon) handleResetOne(w http.ResponseWriter, r *http.Request) {
	id := getRequestExperienceID(r)
	if !s.resolver.Registry().ResetOne(id) {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	a, _ := s.resolver.Registry().Get(id)
	s.writeJSON(w, a)
}

func (s *WebDaemon) handleResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.resolver.Registry().ResetAll(); err != nil {
		s.logger.Error("Failed to reset anchors", "error", err)
		http.Error(w, "Failed to reset anchors", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, s.resolver.Registry().All())
}

type correctionsReport struct {
	Enabled   bool                                        `json:"enabled"`
	Trained   int                                         `json:"trained"`
	Available []conceptual.ExperienceID                   `json:"available"`
	Info      map[conceptual.ExperienceID]correction.Info `json:"info"`
}

func (s *WebDaemon) handleCorrections(w http.ResponseWriter, r *http.Request) {
	oracle := s.resolver.Registry().Oracle()
	rep := correctionsReport{
		Enabled:   oracle.Enabled(),
		Trained:   oracle.TrainedCount(),
		Available: oracle.AvailableExperiences(),
		Info:      map[conceptual.ExperienceID]correction.Info{},
	}
	for _, id := range s.resolver.Registry().IDs() {
		rep.Info[id] = oracle.Info(id)
	}
	s.writeJSON(w, rep)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *WebDaemon) handleToggleCorrections(w http.ResponseWriter, r *http.Request) {
	req := toggleRequest{}
	if err := decodeBody(r, &req); err != nil || req.Enabled == nil {
		http.Error(w, "Want {\"enabled\": bool}", http.StatusBadRequest)
		return
	}
	if err := s.resolver.Registry().ToggleCorrections(*req.Enabled); err != nil {
		s.logger.Error("Failed to toggle corrections", "error", err)
		http.Error(w, "Failed to toggle corrections", http.StatusInternalServerError)
		return
	}
	s.handleCorrections(w, r)
}

type trainer interface {
	Train(id conceptual.ExperienceID, observed orb.Point, confidence float64) (correction.Correction, error)
}

type trainRequest struct {
	GPS        orb.Point `json:"gps"`
	Confidence float64   `json:"confidence"`
}

// handleTrainCorrection folds an observed anchor position into its correction.
// Anchors pick it up on the next reload.
func (s *WebDaemon) handleTrainCorrection(w http.ResponseWriter, r *http.Request) {
	t, ok := s.resolver.Registry().Oracle().(trainer)
	if !ok {
		http.Error(w, "Corrections are not trainable", http.StatusNotImplemented)
		return
	}
	id := getRequestExperienceID(r)
	if _, ok := s.resolver.Registry().Get(id); !ok {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	req := trainRequest{}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	c, err := t.Train(id, req.GPS, req.Confidence)
	if err != nil {
		s.logger.Error("Failed to train correction", "id", id, "error", err)
		http.Error(w, "Failed to train correction", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, c)
}

// handleDebug sets the debug flag, or toggles it given no value.
func (s *WebDaemon) handleDebug(w http.ResponseWriter, r *http.Request) {
	req := toggleRequest{}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	debug := s.resolver.Debug()
	if req.Enabled == nil {
		debug.Toggle()
	} else {
		debug.Set(*req.Enabled)
	}
	s.writeJSON(w, map[string]bool{"enabled": debug.Enabled()})
}

type tunablesView struct {
	ElevationOffset float64      `json:"elevationOffset"`
	DebugPosition   world.Vector `json:"debugPosition"`
}

type tunablesRequest struct {
	ElevationOffset *float64      `json:"elevationOffset,omitempty"`
	AdjustElevation *float64      `json:"adjustElevation,omitempty"`
	DebugPosition   *world.Vector `json:"debugPosition,omitempty"`
	Reset           bool          `json:"reset,omitempty"`
}

func (s *WebDaemon) tunables() tunablesView {
	return tunablesView{
		ElevationOffset: s.resolver.GlobalElevationOffset(),
		DebugPosition:   s.resolver.GlobalDebugPosition(),
	}
}

func (s *WebDaemon) handleTunables(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.tunables())
}

// handleSetTunables applies a reset first, then any explicit values.
func (s *WebDaemon) handleSetTunables(w http.ResponseWriter, r *http.Request) {
	req := tunablesRequest{}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	if req.Reset {
		if err := s.resolver.ResetAdjustments(); err != nil {
			s.logger.Error("Failed to reset adjustments", "error", err)
			http.Error(w, "Failed to reset adjustments", http.StatusInternalServerError)
			return
		}
	}
	if req.ElevationOffset != nil {
		s.resolver.SetGlobalElevationOffset(*req.ElevationOffset)
	}
	if req.AdjustElevation != nil {
		s.resolver.AdjustGlobalElevationOffset(*req.AdjustElevation)
	}
	if req.DebugPosition != nil {
		s.resolver.SetGlobalDebugPosition(*req.DebugPosition)
	}
	s.writeJSON(w, s.tunables())
}

// placementView is a resolved position with the user's geofence status.
type placementView struct {
	resolver.ResolvedPosition
	InGeofence   bool   `json:"inGeofence"`
	EntryMessage string `json:"entryMessage,omitempty"`
}

func (s *WebDaemon) view(rp resolver.ResolvedPosition) placementView {
	v := placementView{ResolvedPosition: rp}
	if rp.UserWorldPosition != nil {
		reg := s.resolver.Registry()
		v.InGeofence = reg.InGeofence(rp.ExperienceID, *rp.UserWorldPosition)
		if v.InGeofence {
			v.EntryMessage, _ = reg.EntryMessage(rp.ExperienceID, *rp.UserWorldPosition)
		}
	}
	return v
}

func (s *WebDaemon) views(rps []resolver.ResolvedPosition) []placementView {
	out := make([]placementView, len(rps))
	for i, rp := range rps {
		out[i] = s.view(rp)
	}
	return out
}

type resolveRequest struct {
	ID          conceptual.ExperienceID `json:"id,omitempty"`
	User        resolver.UserInput      `json:"user"`
	Options     resolver.Options        `json:"options"`
	MaxDistance float64                 `json:"maxDistance,omitempty"`
}

// handleResolve resolves one experience by id, or every experience in range.
func (s *WebDaemon) handleResolve(w http.ResponseWriter, r *http.Request) {
	req := resolveRequest{}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	if req.ID.IsEmpty() {
		s.writeJSON(w, s.views(s.resolver.AllInRange(req.User, req.MaxDistance)))
		return
	}
	rp, ok := s.resolver.Resolve(req.ID, req.User, req.Options)
	if !ok {
		http.Error(w, "no experience that", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.view(rp))
}

type placementsReport struct {
	User       selector.Selection `json:"user"`
	Refined    bool               `json:"refined"`
	Placements []placementView    `json:"placements"`
}

type recognitionReport struct {
	Accepted bool                  `json:"accepted"`
	Current  *recognition.Accepted `json:"current,omitempty"`
}

func (s *WebDaemon) recognitionReport(accepted bool) recognitionReport {
	rep := recognitionReport{Accepted: accepted}
	if cur, ok := s.refiner.Current(); ok {
		rep.Current = &cur
	}
	return rep
}

func (s *WebDaemon) handleRecognition(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recognitionReport(false))
}

// handleRecognize feeds a recognition reported by the client to the refiner.
func (s *WebDaemon) handleRecognize(w http.ResponseWriter, r *http.Request) {
	frame, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	acc, err := s.refiner.Observe(r.Context(), frame)
	if errors.Is(err, recognition.ErrSuperseded) {
		http.Error(w, "Superseded by a newer recognition", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, s.recognitionReport(acc != nil))
}

// handlePosition records a device fix, selects the user's position,
// nudges it by any recognition in effect,
// and returns (and broadcasts) every experience in range of it.
func (s *WebDaemon) handlePosition(w http.ResponseWriter, r *http.Request) {
	fix := selector.Fix{}
	if err := decodeBody(r, &fix); err != nil {
		http.Error(w, "Failed to decode", http.StatusBadRequest)
		return
	}
	s.averager.Add(fix)
	sel, ok := s.averager.Select(nil)
	if !ok {
		http.Error(w, "No usable position", http.StatusUnprocessableEntity)
		return
	}
	var refined bool
	sel.Point, refined = s.refiner.Adjust(sel.Point)

	user := resolver.UserInput{GPS: &sel.Point}
	placements := s.resolver.AllInRange(user, 0)
	rep := placementsReport{User: sel, Refined: refined, Placements: s.views(placements)}
	s.writeJSON(w, rep)

	s.feedPlacements.Send(rep)

	if s.Config.Influx.Enabled() {
		go func(at time.Time) {
			if err := influxdb.ExportPlacements(s.Config.Influx, at, sel, placements); err != nil {
				s.logger.Warn("Failed to export placements", "error", err)
			}
		}(time.Now())
	}
}
