package events

import (
	platformevents "sdr_assistant_backend/platform/events"
	"sdr_assistant_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
