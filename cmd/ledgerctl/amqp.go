package main

import (
	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/infra"
	"github.com/ledgerly/ledgerly/internal/notification"
)

func openAMQP(e *env) (*notification.AMQPNotifier, func() error, error) {
	conn, err := infra.NewAMQPConnection(e.cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	n, err := notification.NewAMQPNotifier(conn, e.cfg.AMQPExchange, e.cfg.AMQPQueue, e.logger)
	if err != nil {
		return nil, nil, multierr.Append(err, conn.Close())
	}
	return n, func() error { return multierr.Combine(n.Close(), conn.Close()) }, nil
}
