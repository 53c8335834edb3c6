package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CallContext carries the caller identity and timestamp the execution
// environment would otherwise provide ambiently. Every mutating engine
// operation takes one explicitly.
type CallContext struct {
	Caller common.Address
	Now    time.Time
}

// NewCallContext builds a call context for caller at the current time.
func NewCallContext(caller common.Address) CallContext {
	return CallContext{Caller: caller, Now: time.Now()}
}

// At returns a copy with the timestamp replaced, used by tests and replays.
func (c CallContext) At(now time.Time) CallContext {
	c.Now = now
	return c
}
