package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/prepnest/prepnest-backend/internal/users"
	"github.com/prepnest/prepnest-backend/pkg/enums"
	"github.com/prepnest/prepnest-backend/pkg/logger"
	"github.com/prepnest/prepnest-backend/pkg/outbox"
	"github.com/prepnest/prepnest-backend/pkg/outbox/payloads"
)

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type ConsumerParams struct {
	Subscriber subscriber
	Users      users.Repository
	Sender     EmailSender
	Logger     *logger.Logger
}

// Consumer turns published payment events into user-facing emails. Delivery
// is best effort: malformed events ack so the subscription does not wedge,
// send failures nack for redelivery.
type Consumer struct {
	sub    subscriber
	users  users.Repository
	sender EmailSender
	logg   *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscriber == nil {
		return nil, errors.New("subscriber is required")
	}
	if params.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if params.Sender == nil {
		return nil, errors.New("email sender is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		sub:    params.Subscriber,
		users:  params.Users,
		sender: params.Sender,
		logg:   params.Logger,
	}, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		ctx = c.logg.WithField(ctx, "event_type", string(eventType))

		if err := c.handle(ctx, eventType, msg.Data); err != nil {
			if errors.Is(err, errMalformedEvent) {
				c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping malformed payment event")
				msg.Ack()
				return
			}
			c.logg.Error(ctx, "handling payment event failed", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

var errMalformedEvent = errors.New("malformed payment event")

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data []byte) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	switch eventType {
	case enums.OutboxEventPaymentSettled:
		var event payloads.PaymentSettledEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		return c.sendSettled(ctx, event)
	case enums.OutboxEventPaymentFailed:
		var event payloads.PaymentFailedEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		return c.sendFailed(ctx, event)
	default:
		c.logg.Info(ctx, "ignoring unhandled payment event type")
		return nil
	}
}

func (c *Consumer) sendSettled(ctx context.Context, event payloads.PaymentSettledEvent) error {
	user, err := c.users.FindByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("%w: user lookup: %v", errMalformedEvent, err)
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment of INR %.2f was received and your test series access is active.\nOrder reference: %s\n\nHappy practicing!",
		user.FullName,
		float64(event.AmountPaise)/100,
		event.GatewayOrderID,
	)
	return c.sender.Send(ctx, user.Email, "Payment received", body)
}

func (c *Consumer) sendFailed(ctx context.Context, event payloads.PaymentFailedEvent) error {
	user, err := c.users.FindByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("%w: user lookup: %v", errMalformedEvent, err)
	}

	reason := event.FailureReason
	if reason == "" {
		reason = "the payment could not be completed"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour recent payment attempt did not go through: %s.\nNo amount has been captured for order %s. Please try again.",
		user.FullName,
		reason,
		event.GatewayOrderID,
	)
	return c.sender.Send(ctx, user.Email, "Payment failed", body)
}
