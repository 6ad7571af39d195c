// Package rest exposes the marketplace over HTTP: account registration and
// login, the product catalog, and the media upload flow. Routes are served by
// chi; identity-gated routes read a bearer token minted by the account service.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alexbor287kz-boop/marketplace/internal/logging"
	"github.com/alexbor287kz-boop/marketplace/internal/server/config"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
	"github.com/alexbor287kz-boop/marketplace/internal/server/services"
)

const (
	requestTimeout    = 15 * time.Second
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

type accountService interface {
	Register(ctx context.Context, fullName, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

type productService interface {
	List(ctx context.Context) ([]*models.Product, error)
	Create(ctx context.Context, ownerID string, input *services.ProductInput, media []*services.MediaInput) (*models.Product, []*models.MediaUploadTask, error)
	Update(ctx context.Context, id string, upd *models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	AttachMedia(ctx context.Context, productID, contentType string) (*models.MediaUploadTask, error)
	MarkMediaUploaded(ctx context.Context, id string) error
	MediaDownloadURL(ctx context.Context, id string) (string, error)
	DeleteMedia(ctx context.Context, id string) error
}

type RESTServer struct {
	address    string
	logger     logging.Logger
	accounts   accountService
	products   productService
	jwtSecret  []byte
	corsOrigin string
	staticDir  string
}

func NewRESTServer(c *config.Config, l logging.Logger, as accountService, ps productService) (*RESTServer, error) {
	return &RESTServer{
		address:    c.EndpointAddrHTTP,
		logger:     l.With("module", "rest_server"),
		accounts:   as,
		products:   ps,
		jwtSecret:  []byte(c.SecretKey),
		corsOrigin: c.CORSAllowedOrigin,
		staticDir:  c.StaticDir,
	}, nil
}

// Router assembles the full route tree. Split out from Run so tests can drive
// it with httptest without binding a socket.
func (s *RESTServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.corsOrigin},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/register", s.handleRegister)
		api.Post("/login", s.handleLogin)
		api.Get("/products", s.handleListProducts)

		api.Group(func(g chi.Router) {
			g.Use(s.authMiddleware)
			g.Post("/products", s.handleCreateProduct)
			g.Put("/products/{id}", s.handleUpdateProduct)
			g.Delete("/products/{id}", s.handleDeleteProduct)
			g.Post("/products/{id}/media", s.handleAttachMedia)
			g.Post("/media/{id}/uploaded", s.handleMediaUploaded)
			g.Get("/media/{id}/url", s.handleMediaDownloadURL)
			g.Delete("/media/{id}", s.handleDeleteMedia)
		})
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return r
}

func (s *RESTServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
