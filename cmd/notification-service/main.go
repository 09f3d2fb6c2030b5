package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/dispatch"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/resource"
	"github.com/iyhunko/product-catalog/internal/service"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

const serviceName = "notification-service"

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(serviceName, conf.DebugMode)
	if conf.AWS.SQSQueueURL == "" {
		handleErr("reading queue url", config.ErrMissingConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("creating SQS client", err)
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL)
	service.NewNotificationService(skuLookup(conf)).Register(consumer)

	slog.Info("notification service started, listening for messages", slog.String("queue", conf.AWS.SQSQueueURL))
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("consumer stopped", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down gracefully")
}

// skuLookup checks skus against the catalog at ENDPOINT_SKUS. It returns nil
// when no endpoint is configured.
func skuLookup(conf *config.Config) resource.Lookup {
	endpoint, ok := conf.Catalog.Endpoints[model.KindSkus]
	if !ok {
		slog.Info("no skus endpoint configured, created notifications are not checked")
		return nil
	}
	remote := dispatch.NewRemote(dispatch.RemoteConfig{
		Endpoints: map[model.Kind]string{model.KindSkus: endpoint},
		UserAgent: serviceName,
		Timeout:   conf.Catalog.RemoteTimeout,
	})
	return dispatch.Lookup(remote, model.KindSkus)
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
