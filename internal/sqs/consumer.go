package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/iyhunko/product-catalog/internal/metrics"
)

const (
	resultHandled   = "handled"
	resultFailed    = "failed"
	resultUnrouted  = "unrouted"
	resultMalformed = "malformed"
)

var errMalformed = errors.New("malformed product message")

// ConsumerAPI defines the interface for SQS operations used by Consumer.
type ConsumerAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Handler processes one product message. A returned error leaves the message
// on the queue so SQS redelivers it.
type Handler func(ctx context.Context, msg ProductMessage) error

// Consumer receives product lifecycle notifications from AWS SQS and routes
// each one to the handler registered for its action.
type Consumer struct {
	client   ConsumerAPI
	queueURL string
	handlers map[string]Handler
}

// NewConsumer creates a new SQS Consumer with the given client and queue URL.
func NewConsumer(client ConsumerAPI, queueURL string) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		handlers: make(map[string]Handler),
	}
}

// Handle registers h for messages whose action is action. Messages with no
// registered handler are acknowledged and dropped.
func (c *Consumer) Handle(action string, h Handler) {
	c.handlers[action] = h
}

// Start begins consuming messages from the SQS queue until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("Starting SQS consumer", slog.String("queueURL", c.queueURL), slog.Int("handlers", len(c.handlers)))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping SQS consumer")
			return ctx.Err()
		default:
			if err := c.receiveMessages(ctx); err != nil {
				slog.Error("Error receiving messages", slog.Any("err", err))
			}
		}
	}
}

func (c *Consumer) receiveMessages(ctx context.Context) error {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.queueURL),
		MaxNumberOfMessages:   10,
		WaitTimeSeconds:       20, // Long polling
		MessageAttributeNames: []string{attrAction, attrSkuID},
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, message := range result.Messages {
		if err := c.processMessage(ctx, message); err != nil {
			slog.Error("Error processing message",
				slog.String("message_id", aws.ToString(message.MessageId)),
				slog.Any("err", err),
			)
			continue
		}

		if err := c.deleteMessage(ctx, message); err != nil {
			slog.Error("Error deleting message", slog.Any("err", err))
		}
	}

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, message types.Message) error {
	msg, err := decodeMessage(message)
	if err != nil {
		metrics.NotificationsConsumed.WithLabelValues("", resultMalformed).Inc()
		return err
	}

	h, ok := c.handlers[msg.Action]
	if !ok {
		metrics.NotificationsConsumed.WithLabelValues(msg.Action, resultUnrouted).Inc()
		slog.WarnContext(ctx, "No handler for product message",
			slog.String("action", msg.Action),
			slog.Int64("sku_id", msg.SkuID),
		)
		return nil
	}

	if err := h(ctx, msg); err != nil {
		metrics.NotificationsConsumed.WithLabelValues(msg.Action, resultFailed).Inc()
		return fmt.Errorf("failed to handle %s message for sku %d: %w", msg.Action, msg.SkuID, err)
	}
	metrics.NotificationsConsumed.WithLabelValues(msg.Action, resultHandled).Inc()
	return nil
}

// decodeMessage reads the message body. When the publisher set an action
// attribute, it must agree with the body.
func decodeMessage(message types.Message) (ProductMessage, error) {
	if message.Body == nil {
		return ProductMessage{}, fmt.Errorf("%w: message body is nil", errMalformed)
	}

	var msg ProductMessage
	if err := json.Unmarshal([]byte(*message.Body), &msg); err != nil {
		return ProductMessage{}, fmt.Errorf("%w: failed to unmarshal message: %w", errMalformed, err)
	}
	if msg.Action == "" || msg.SkuID == 0 {
		return ProductMessage{}, fmt.Errorf("%w: incomplete message: %s", errMalformed, *message.Body)
	}

	if attr, ok := message.MessageAttributes[attrAction]; ok {
		if action := aws.ToString(attr.StringValue); action != msg.Action {
			return ProductMessage{}, fmt.Errorf("%w: action attribute %q does not match body %q", errMalformed, action, msg.Action)
		}
	}
	return msg, nil
}

func (c *Consumer) deleteMessage(ctx context.Context, message types.Message) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
