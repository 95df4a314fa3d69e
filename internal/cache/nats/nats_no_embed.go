//go:build no_embedded_nats

package nats

import (
	"github.com/johbar/pdf-info-service/internal/config"
	"github.com/nats-io/nats.go"
)

const NatsEmbedded bool = false

func ConnectToEmbeddedNatsServer(_ config.PisConfig) (*nats.Conn, error) {
	return nil, errNatsNotEmbedded
}
