package transfer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wagslane/go-rabbitmq"

	"streamcap/internal/config"
	"streamcap/internal/logging"
	"streamcap/internal/services"
)

// Publisher submits transfer requests to a RabbitMQ exchange.
type Publisher struct {
	conn       *rabbitmq.Conn
	publisher  *rabbitmq.Publisher
	exchange   string
	routingKey string
	logger     *slog.Logger
}

// NewPublisher connects to the broker configured in cfg and declares the
// transfer exchange.
func NewPublisher(cfg config.Transfer, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	conn, err := rabbitmq.NewConn(cfg.AMQPURL)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transfer", "connect to broker", err)
	}

	publisher, err := rabbitmq.NewPublisher(
		conn,
		rabbitmq.WithPublisherOptionsExchangeName(cfg.Exchange),
		rabbitmq.WithPublisherOptionsExchangeDeclare,
	)
	if err != nil {
		_ = conn.Close()
		return nil, services.Wrap(services.ErrTransient, "transfer", "create publisher", err)
	}

	return &Publisher{
		conn:       conn,
		publisher:  publisher,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With(logging.String(logging.FieldComponent, "transfer")),
	}, nil
}

// Submit publishes one request as a persistent JSON message.
func (p *Publisher) Submit(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transfer", "encode request", err)
	}

	err = p.publisher.PublishWithContext(
		ctx,
		body,
		[]string{p.routingKey},
		rabbitmq.WithPublishOptionsContentType("application/json"),
		rabbitmq.WithPublishOptionsPersistentDelivery,
		rabbitmq.WithPublishOptionsExchange(p.exchange),
	)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transfer", "publish request", err)
	}

	p.logger.Info("transfer request submitted",
		logging.String("request_id", req.ID),
		logging.String(logging.FieldTargetURL, req.TargetURL),
		logging.Int("items", len(req.Items)))
	return nil
}

// Close releases the publisher and the underlying connection.
func (p *Publisher) Close() error {
	p.publisher.Close()
	return p.conn.Close()
}

// noopSubmitter is used when no broker is configured; remote-sync actions
// fail fast instead of queueing into nowhere.
type noopSubmitter struct {
	logger *slog.Logger
}

// NewNoop returns a submitter that rejects every request.
func NewNoop(logger *slog.Logger) Submitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &noopSubmitter{logger: logger.With(logging.String(logging.FieldComponent, "transfer"))}
}

func (n *noopSubmitter) Submit(_ context.Context, req Request) error {
	n.logger.Warn("remote sync requested but no transfer broker is configured",
		logging.String(logging.FieldTargetURL, req.TargetURL))
	return services.Wrap(services.ErrInvalidConfiguration, "transfer", "no broker configured", nil)
}

func (n *noopSubmitter) Close() error { return nil }
