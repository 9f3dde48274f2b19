package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/pkg/certificates"
)

const (
	ProductionServer string = "prod"
	DevServer        string = "dev"
)

type Server struct {
	srv *http.Server
}

// NewEngine returns the gin engine with logging and recovery middlewares and
// the routes added by registerHandlerFn.
func NewEngine(registerHandlerFn func(router gin.IRouter)) *gin.Engine {
	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(zap.L(), time.RFC3339, true),
		ginzap.RecoveryWithZap(zap.L(), true),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
	})

	registerHandlerFn(engine)
	return engine
}

func NewServer(cfg *config.Configuration, registerHandlerFn func(router gin.IRouter)) (*Server, error) {
	gin.SetMode(gin.DebugMode)
	if cfg.Server.ServerMode == ProductionServer {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := NewEngine(registerHandlerFn)

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Server.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.ServerMode == ProductionServer {
		cert, key, err := certificates.GenerateSelfSignedCertificate(time.Now().AddDate(1, 0, 0))
		if err != nil {
			return nil, fmt.Errorf("failed to generate server's certificates: %w", err)
		}

		tlsConfig, err := certificates.TLSConfig(cert, key)
		if err != nil {
			return nil, err
		}

		srv.TLSConfig = tlsConfig
	}

	return &Server{srv: srv}, nil
}

// Start serves HTTP, or HTTPS when TLS is configured, until Stop is called.
func (r *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", r.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.srv.Addr, err)
	}

	zap.S().Infow("frontend server listening", "address", l.Addr().String(), "tls", r.srv.TLSConfig != nil)

	if r.srv.TLSConfig != nil {
		err = r.srv.ServeTLS(l, "", "")
	} else {
		err = r.srv.Serve(l)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (r *Server) Stop(ctx context.Context) {
	if err := r.srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("server shutdown", "error", err)
	}
}
