// Package daemon runs the HTTP API serving the OCV forward model, the
// diagnostics estimator, the pristine profile catalog, and the saved-result
// pool.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/battkit/ocvd/pkg/catalog"
	"github.com/battkit/ocvd/pkg/config"
	"github.com/battkit/ocvd/pkg/pool"
)

type server struct {
	cfg   *config.Config
	cat   *catalog.Catalog
	store *pool.Store
}

func setupRoutes(s *server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/health", s.getHealth)
	router.GET("/version", s.getVersion)
	router.GET("/pristine/catalog", s.getCatalog)
	router.POST("/ocv/curves", s.postCurves)
	router.POST("/diagnostics/estimate", s.postEstimate)
	router.POST("/pool/save", s.postPoolSave)
	router.GET("/pool/list", s.getPoolList)
	router.POST("/pool/load", s.postPoolLoad)

	return router
}

// Run starts the daemon and blocks until SIGINT/SIGTERM.
func Run(cfg *config.Config) error {
	setupLogging(cfg)

	s := &server{
		cfg:   cfg,
		cat:   catalog.New(cfg.CatalogDir),
		store: pool.NewStore(cfg.PoolDir),
	}
	router := setupRoutes(s)

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
		return err
	}

	logrus.Info("exiting")
	return nil
}

func setupLogging(cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("invalid log level %q, keeping %s", cfg.Log.Level, logrus.GetLevel())
	}

	if cfg.Log.File != "" {
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}
}
