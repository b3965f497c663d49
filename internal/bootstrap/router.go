package bootstrap

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/mediguru/mediguru-gateway/internal/api/http"
	"github.com/mediguru/mediguru-gateway/internal/api/http/middleware"
	genhttp "github.com/mediguru/mediguru-gateway/internal/generation/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Origins     []string
	Gateway     genhttp.GenerationService
	History     genhttp.HistoryReader // nil when redis is disabled
	Audits      genhttp.AuditReader   // nil when postgres is disabled
	Redis       *redis.Client
	DB          *sql.DB
}

var allowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(dep.Origins))
	r.Use(middleware.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/fastapi")
	genhttp.New(dep.Gateway, dep.History, dep.Audits).Register(api)

	return r
}

// CORS allows the listed origins with credentials, every method and any
// request header. Requests from other origins are refused with 403.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	// AllowHeaders stays empty so the echoed preflight header survives.
	handler := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     allowedMethods,
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	return func(c *gin.Context) {
		echoRequestHeaders(c, allowed)
		handler(c)
	}
}

// echoRequestHeaders answers a preflight from an allowed origin with the
// headers it asked for. A literal "*" is ignored by browsers when
// credentials are allowed.
func echoRequestHeaders(c *gin.Context, allowed map[string]struct{}) {
	if c.Request.Method != http.MethodOptions {
		return
	}
	requested := c.GetHeader("Access-Control-Request-Headers")
	if requested == "" {
		return
	}
	if _, ok := allowed[c.GetHeader("Origin")]; !ok {
		return
	}
	c.Header("Access-Control-Allow-Headers", requested)
}
