package www

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tally/engine"
	"tally/engine/config"
)

type Router struct {
	Config *config.ConfigSettings
	Engine *engine.LedgerEngine
}

func (router *Router) Start() {
	mux := router.handler()

	// start server
	server := http.Server{
		Addr:    fmt.Sprintf("%s:%d", router.Config.RequiredSettings.BindAddress, router.Config.MiscSettings.Port),
		Handler: mux,
	}
	slog.Info(fmt.Sprintf("Starting Web Server on http://%s:%d", router.Config.RequiredSettings.BindAddress, router.Config.MiscSettings.Port))

	log.Fatal(server.ListenAndServe())
}

func (router *Router) handler() *gin.Engine {
	SetConfig(router.Config)
	SetEngine(router.Engine)

	gin.SetMode(gin.ReleaseMode)
	mux := gin.New()
	mux.Use(gin.Recovery())
	initCookies(mux)

	/******************************************
	|                                         |
	|              PUBLIC ROUTES              |
	|                                         |
	******************************************/

	public := mux.Group("/api")
	public.POST("/login", login)
	public.GET("/config", getConfig)

	mux.GET("/metrics", gin.WrapH(promhttp.Handler()))

	/******************************************
	|                                         |
	|               AUTH ROUTES               |
	|                                         |
	******************************************/

	authed := mux.Group("/api")
	authed.Use(authRequired)
	authed.POST("/logout", logout)
	authed.GET("/me", me)
	authed.GET("/teams", getTeams)
	authed.POST("/teams/:teamid/spend", spendPoints)
	authed.GET("/reports", getReports)

	/******************************************
	|                                         |
	|               ADMIN ROUTES              |
	|                                         |
	******************************************/

	admin := mux.Group("/api")
	admin.Use(adminAuthRequired)
	admin.POST("/teams", createTeams)
	admin.DELETE("/teams/:teamid", deleteTeam)
	admin.POST("/teams/:teamid/add-points", addPoints)
	admin.POST("/admin/add-points", addPointsAll)
	admin.POST("/admin/reset-points", resetPoints)
	admin.POST("/admin/settings", updateSettings)
	admin.POST("/reports/:reportid/check", toggleReportCheck)

	return mux
}
