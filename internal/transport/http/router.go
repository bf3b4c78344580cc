package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-session-service/internal/app"
)

type RouterConfig struct {
	CORSOrigins []string
	// EnableReset exposes DELETE /clear, which drops every session. Test and demo deployments only.
	EnableReset bool
}

// NewRouter wires the REST API, the player websocket and the operational endpoints.
func NewRouter(service *app.QuizService, c RouterConfig) *gin.Engine {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), corsMiddleware(c.CORSOrigins))

	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h := &handler{service: service}
	ws := NewWSHandler(service)
	e.GET("/ws", gin.WrapF(ws.ServeWS))

	host := e.Group("/quizzes/:quizId/sessions")
	host.POST("", h.startSession)
	host.GET("", h.sessionsView)
	host.GET("/:sessionId", h.sessionStatus)
	host.PUT("/:sessionId", h.applyAction)
	host.GET("/:sessionId/questions/:position/results", h.questionResult)
	host.GET("/:sessionId/results", h.finalResults)
	host.GET("/:sessionId/results/csv", h.resultsCSVLink)
	host.GET("/:sessionId/results/csv/download", h.resultsCSV)

	e.POST("/sessions/:sessionId/players", h.joinSession)

	player := e.Group("/players/:playerId")
	player.GET("", h.playerStatus)
	player.GET("/questions/:position", h.playerQuestion)
	player.PUT("/questions/:position/answers", h.submitAnswer)
	player.GET("/questions/:position/results", h.playerQuestionResult)
	player.GET("/results", h.playerFinalResults)
	player.GET("/chat", h.messages)
	player.POST("/chat", h.sendMessage)

	if c.EnableReset {
		e.DELETE("/clear", h.reset)
	}
	return e
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", tokenHeader},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}
