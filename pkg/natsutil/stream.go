package natsutil

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// PublishStream serializes v as JSON and publishes it to a JetStream
// subject, waiting for the stream to acknowledge storage.
func PublishStream[T any](ctx context.Context, js jetstream.JetStream, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	_, err = js.PublishMsg(ctx, msg)
	return err
}

// Consume delivers JSON messages of type T from a pull consumer. A message
// is acked when handler returns nil and nak'd for redelivery otherwise.
// Malformed messages are terminated.
func Consume[T any](cons jetstream.Consumer, handler func(context.Context, T) error) (jetstream.ConsumeContext, error) {
	return cons.Consume(func(msg jetstream.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data(), &v); err != nil {
			_ = msg.Term()
			return
		}
		carrier := natsHeaderCarrier{Header: msg.Headers()}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), &carrier)
		if err := handler(ctx, v); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
}
