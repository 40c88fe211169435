package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/rainevents/internal/log"
	"github.com/chrissnell/rainevents/internal/rainfall"
	"github.com/chrissnell/rainevents/internal/report"
	"github.com/chrissnell/rainevents/internal/storage/sqlite"
	"github.com/chrissnell/rainevents/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Archive is the read side of the run archive
type Archive interface {
	Runs(ctx context.Context, station string) ([]sqlite.RunRecord, error)
	Run(ctx context.Context, runID string) (sqlite.RunRecord, error)
	Events(ctx context.Context, runID string) ([]rainfall.EventSummary, error)
	NormalizedPoints(ctx context.Context, runID string) ([]rainfall.NormalizedPoint, error)
	EventSamples(ctx context.Context, runID string, eventID rainfall.EventID) ([]sqlite.SampleRecord, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	registry   *report.Registry
	archive    Archive
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. archive may be nil when
// no SQLite archive is configured.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, registry *report.Registry, archive Archive, logger *zap.SugaredLogger) (*Controller, error) {
	if registry == nil {
		return nil, fmt.Errorf("REST server requires a results registry")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		registry:   registry,
		archive:    archive,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultHTTPPort)
		rc.Port = config.DefaultHTTPPort
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %v...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", c.handlers.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{station}", c.handlers.GetStation).Methods(http.MethodGet)
	api.HandleFunc("/stations/{station}/events", c.handlers.GetEvents).Methods(http.MethodGet)
	api.HandleFunc("/stations/{station}/events/{id:[0-9]+}", c.handlers.GetEvent).Methods(http.MethodGet)
	api.HandleFunc("/stations/{station}/normalized", c.handlers.GetNormalized).Methods(http.MethodGet)

	// Archived runs are only served when an archive was configured
	if c.archive != nil {
		api.HandleFunc("/runs", c.handlers.GetRuns).Methods(http.MethodGet)
		api.HandleFunc("/runs/{run}/events", c.handlers.GetRunEvents).Methods(http.MethodGet)
		api.HandleFunc("/runs/{run}/events/{id:[0-9]+}", c.handlers.GetRunEvent).Methods(http.MethodGet)
		api.HandleFunc("/runs/{run}/normalized", c.handlers.GetRunNormalized).Methods(http.MethodGet)
	}

	return router
}

func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugw("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}
