package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/dispatch"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	sqlstore "github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

// NeedsDB reports whether conf serves any kind from postgres.
func NeedsDB(conf *config.Config) bool {
	return conf.Storage == config.StoragePostgres && len(conf.Catalog.ServedKinds()) > 0
}

// NewStores creates the stores of every kind conf serves. db is only used
// with postgres storage.
func NewStores(conf *config.Config, db *sql.DB) map[model.Kind]repository.Store {
	kinds := conf.Catalog.ServedKinds()
	if conf.Storage == config.StorageMemory {
		return memory.NewStores(kinds...)
	}
	return sqlstore.NewStores(db, kinds...)
}

// NewRemote creates the dispatcher for the kinds conf depends on but does not
// serve. It returns nil when there are none.
func NewRemote(conf *config.Config) dispatch.Dispatcher {
	if len(conf.Catalog.RemoteKinds()) == 0 {
		return nil
	}
	return dispatch.NewRemote(dispatch.RemoteConfig{
		Endpoints: conf.Catalog.Endpoints,
		UserAgent: conf.Catalog.UserAgent(),
		Timeout:   conf.Catalog.RemoteTimeout,
	})
}

// NewPublisher creates the SQS notification publisher. It returns nil when
// no queue is configured.
func NewPublisher(ctx context.Context, conf *config.Config) (service.Publisher, error) {
	if conf.AWS.SQSQueueURL == "" {
		return nil, nil
	}
	client, err := sqspkg.NewClient(ctx, conf.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQS client: %w", err)
	}
	return sqspkg.NewPublisher(client, conf.AWS.SQSQueueURL), nil
}

// NewRouter mounts the routes conf serves on a new gin engine.
func NewRouter(conf *config.Config, catalog *Catalog) *gin.Engine {
	ctr := controller.New(conf)

	var productCtr *controller.ProductController
	if conf.Catalog.ServesProducts() {
		productCtr = controller.NewProductController(catalog.Products)
	}

	var resourceCtrs []*controller.ResourceController
	for _, kind := range catalog.Kinds() {
		h, _ := catalog.Handler(kind)
		resourceCtrs = append(resourceCtrs, controller.NewResourceController(kind, h))
	}

	return httpAPI.InitRouter(conf, gin.New(), ctr, productCtr, resourceCtrs...)
}
