package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jerry-enebeli/oppgjor"
	"github.com/jerry-enebeli/oppgjor/api/middleware"
	"github.com/jerry-enebeli/oppgjor/config"
)

type Api struct {
	oppgjor *oppgjor.Oppgjor
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/payments", a.RecordDisbursement)
	router.GET("/payments/:id", a.GetPayment)
	router.GET("/payments", a.GetPaymentsByStatus)
	router.POST("/payments/:id/override", a.OverridePayment)

	router.POST("/reconciliations", a.TriggerReconciliation)
	router.GET("/reconciliations/windows", a.GetReconciliationWindows)
	return a.router
}

func NewAPI(o *oppgjor.Oppgjor) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{oppgjor: o, router: r}
}
