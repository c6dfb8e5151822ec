package healthcheckController

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// Check проверка одной зависимости для /ready
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthCheckController struct {
	app    string
	checks []Check
	log    *slog.Logger
}

func New(app string, log *slog.Logger, checks ...Check) *HealthCheckController {
	return &HealthCheckController{
		app:    app,
		checks: checks,
		log:    log,
	}
}

func (c *HealthCheckController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.health)
	r.GET("/ready", c.ready)
}

// health базовая проверка (всегда возвращает 200)
func (c *HealthCheckController) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"app":    c.app,
	})
}

// ready проверяет все зависимости; 503 со списком недоступных
func (c *HealthCheckController) ready(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), readyTimeout)
	defer cancel()

	failed := make([]string, 0)
	for _, check := range c.checks {
		if err := check.Ping(pingCtx); err != nil {
			c.log.Error("dependency not ready", "dependency", check.Name, "error", err)
			failed = append(failed, check.Name)
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "not ready",
			"unavailable": failed,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
