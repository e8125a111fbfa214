package main

import (
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"

	"github.com/cgcardona/maestro/internal/musehub/grpcapi"
	"github.com/cgcardona/maestro/internal/variation/store"
	"github.com/cgcardona/maestro/pkg/mlauncher"
	"github.com/cgcardona/maestro/pkg/mlog"
)

// httpServer runs the fiber app until the process is signalled to stop.
type httpServer struct {
	app     *fiber.App
	address string
	logger  mlog.Logger
}

func (s *httpServer) Run(_ *mlauncher.Launcher) error {
	s.logger.Infof("Starting HTTP server on %s\n", s.address)
	return s.app.Listen(s.address)
}

// grpcServer runs the introspection gRPC service until the process is
// signalled to stop.
type grpcServer struct {
	srv     *grpcapi.Server
	address string
	logger  mlog.Logger
}

func (s *grpcServer) Run(_ *mlauncher.Launcher) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.logger.Infof("Starting gRPC server on %s\n", s.address)

	gs := grpc.NewServer()
	grpcapi.Register(gs, s.srv)

	return gs.Serve(lis)
}

// variationSweeper periodically transitions variations past their TTL
// into the expired state. It publishes no event and does not close the
// expired variations' SSE streams.
type variationSweeper struct {
	variations *store.VariationStore
	ttl        time.Duration
	interval   time.Duration
	logger     mlog.Logger
}

func (s *variationSweeper) Run(_ *mlauncher.Launcher) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		expired := s.variations.CleanupExpired(s.ttl)
		if len(expired) > 0 {
			s.logger.Infof("variation sweep: expired %d variation(s)\n", len(expired))
		}
	}

	return nil
}

// eventLogSubscriber consumes the musehub.events exchange and logs every
// message. It is the only consumer of that exchange this repo starts;
// an external webhook dispatcher binds its own queue independently.
type eventLogSubscriber struct {
	channel  *amqp.Channel
	exchange string
	logger   mlog.Logger
}

func (s *eventLogSubscriber) Run(_ *mlauncher.Launcher) error {
	if s.channel == nil {
		s.logger.Warn("event log subscriber: no channel configured, skipping")
		return nil
	}

	queue, err := s.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}

	if err := s.channel.QueueBind(queue.Name, "#", s.exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := s.channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	for d := range deliveries {
		s.logger.Infof("musehub event: %s\n", string(d.Body))
	}

	return nil
}
