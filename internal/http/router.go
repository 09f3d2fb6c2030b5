package http

import (
	"path"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"github.com/iyhunko/product-catalog/internal/model"
)

// InitRouter mounts the product routes (when productCtr is not nil) and the
// raw routes of every resource controller under the configured base path.
func InitRouter(conf *config.Config, server *gin.Engine, ctr *controller.Controller, productCtr *controller.ProductController, resourceCtrs ...*controller.ResourceController) *gin.Engine {
	// Apply recovery middleware globally to prevent panics from crashing the server
	server.Use(middleware.Recovery(), middleware.CORS(), middleware.TraceContext())
	if conf.AccessLog {
		server.Use(middleware.Logger())
	}

	server.GET("/ping", ctr.Ping)
	server.NoRoute(ctr.NoRoute)

	base := server.Group(conf.Catalog.BasePath)

	if productCtr != nil {
		products := base.Group(path.Join("/", model.KindProducts.String()))
		{
			products.POST("/:key", middleware.RequireJSON(), productCtr.CreateProduct)
			products.GET("/:key", productCtr.GetProduct)
			products.PUT("/:key", middleware.RequireJSON(), productCtr.UpdateProduct)
			products.DELETE("/:key", productCtr.DeleteProduct)
		}
	}

	for _, rc := range resourceCtrs {
		mountResource(base, rc)
	}

	return server
}

func mountResource(base *gin.RouterGroup, rc *controller.ResourceController) {
	table, ok := model.TableFor(rc.Kind())
	if !ok {
		return
	}

	payload := model.AcceptsPayload(rc.Kind())
	body := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if payload {
			return []gin.HandlerFunc{middleware.RequireJSON(), h}
		}
		return []gin.HandlerFunc{h}
	}

	group := base.Group(path.Join("/", rc.Kind().String()))
	group.POST("/:key", body(rc.Create)...)
	group.GET("/:key", rc.Read)
	group.DELETE("/:key", rc.Delete)
	if payload {
		group.PUT("/:key", body(rc.Update)...)
	}

	switch table.Shape {
	case model.ShapeRoot:
		group.GET("", rc.List)
	case model.ShapeList:
		group.GET("/:key/:item", rc.ReadItem)
		group.PUT("/:key/:item", body(rc.UpdateItem)...)
		group.DELETE("/:key/:item", rc.DeleteItem)
	}
}
