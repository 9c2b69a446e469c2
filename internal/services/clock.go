package services

import (
	"time"

	"github.com/google/uuid"
)

// Clock is the time source for every duration computed by the services.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = systemClock{}

// IDGenerator returns collision-resistant identifiers for new records.
type IDGenerator func() string

var NewUUID IDGenerator = uuid.NewString
