package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/cubechat/internal/handler/channel"
	"github.com/zhouzirui/cubechat/internal/handler/upload"
	middlewarePkg "github.com/zhouzirui/cubechat/internal/middleware"
	"github.com/zhouzirui/cubechat/internal/service/library"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(lib *library.Library, responder channel.Responder, maxUploadBytes int64, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	channel.New(responder, logger).RegisterRoutes(r)
	upload.New(lib, maxUploadBytes, logger).RegisterRoutes(r)

	return r
}
