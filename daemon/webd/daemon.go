package webd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/studio0rpiment/wayside/params"
	"github.com/studio0rpiment/wayside/recognition"
	"github.com/studio0rpiment/wayside/resolver"
	"github.com/studio0rpiment/wayside/selector"
)

// WebDaemon exposes one shared resolver to client apps over HTTP and websocket.
type WebDaemon struct {
	Config *params.WebDaemonConfig

	resolver *resolver.Resolver
	averager *selector.Averager
	refiner  *recognition.Refiner

	started        time.Time
	closed         atomic.Bool
	logger         *slog.Logger
	melodyInstance *melody.Melody
	feedPlacements event.FeedOf[placementsReport]
	subs           event.SubscriptionScope
}

// NewWebDaemon serves res. A nil averager or refiner gets a default one;
// the default refiner takes recognitions reported by the client.
func NewWebDaemon(config *params.WebDaemonConfig, res *resolver.Resolver, averager *selector.Averager, refiner *recognition.Refiner) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	if averager == nil {
		averager = selector.NewAverager(nil)
	}
	if refiner == nil {
		refiner = recognition.NewRefiner(recognition.Reported, nil)
	}
	s := &WebDaemon{
		Config:   config,
		resolver: res,
		averager: averager,
		refiner:  refiner,
		started:  time.Now(),
		logger:   slog.With("d", "web"),
	}
	s.initMelody()
	return s
}

// Run serves until ctx is done, then shuts the server down.
func (s *WebDaemon) Run(ctx context.Context) error {
	listener, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", s.Config.Network, s.Config.Address, err)
	}
	server := &http.Server{
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web daemon", "address", listener.Addr().String())
		errc <- server.Serve(listener)
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}
	s.logger.Info("Stopping web daemon")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drops websocket clients and feed subscriptions.
func (s *WebDaemon) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.subs.Close()
	_ = s.melodyInstance.Close()
}

func (s *WebDaemon) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	router.Path("/ws").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))

	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/anchors").HandlerFunc(s.handleAnchors).Methods(http.MethodGet)
	apiJSONRoutes.Path("/anchors/{id}").HandlerFunc(s.handleAnchor).Methods(http.MethodGet)
	apiJSONRoutes.Path("/anchors/{id}/diff").HandlerFunc(s.handleAnchorDiff).Methods(http.MethodGet)
	apiJSONRoutes.Path("/corrections").HandlerFunc(s.handleCorrections).Methods(http.MethodGet)
	apiJSONRoutes.Path("/tunables").HandlerFunc(s.handleTunables).Methods(http.MethodGet)
	apiJSONRoutes.Path("/resolve").HandlerFunc(s.handleResolve).Methods(http.MethodPost)
	apiJSONRoutes.Path("/position").HandlerFunc(s.handlePosition).Methods(http.MethodPost)
	apiJSONRoutes.Path("/recognition").HandlerFunc(s.handleRecognition).Methods(http.MethodGet)
	apiJSONRoutes.Path("/recognition").HandlerFunc(s.handleRecognize).Methods(http.MethodPost)

	calibrationRoutes := apiJSONRoutes.NewRoute().Subrouter()
	calibrationRoutes.Use(s.tokenAuthenticationMiddleware)

	calibrationRoutes.Path("/anchors/reset").HandlerFunc(s.handleResetAll).Methods(http.MethodPost)
	calibrationRoutes.Path("/anchors/{id}/gps").HandlerFunc(s.handleUpdateGPS).Methods(http.MethodPost)
	calibrationRoutes.Path("/anchors/{id}/reset").HandlerFunc(s.handleResetOne).Methods(http.MethodPost)
	calibrationRoutes.Path("/corrections").HandlerFunc(s.handleToggleCorrections).Methods(http.MethodPost)
	calibrationRoutes.Path("/corrections/{id}").HandlerFunc(s.handleTrainCorrection).Methods(http.MethodPost)
	calibrationRoutes.Path("/debug").HandlerFunc(s.handleDebug).Methods(http.MethodPost)
	calibrationRoutes.Path("/tunables").HandlerFunc(s.handleSetTunables).Methods(http.MethodPost)

	return router
}
