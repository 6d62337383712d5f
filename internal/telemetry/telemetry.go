// Package telemetry publishes controller state to Redis as a side channel:
// every update is a best-effort write+publish, never allowed to block or
// fail the control loop itself. Grounded on the teacher's
// pkg/service/redis_handlers.go Update*() read-then-write-then-publish
// shape, generalized from the teacher's BLE-device fields to this domain's
// battery/trip/assist/button fields.
package telemetry

import (
	"log"

	"github.com/librescoot/bms-controller/internal/redis"
)

// hashKey is the Redis hash telemetry fields are written under, in the
// style of the teacher's per-domain hash keys (e.g. "vehicle", "battery").
const hashKey = "bms"

// Publisher is the best-effort Redis telemetry sink. Its methods do not
// accept a nil *Publisher; callers that want telemetry to be optional
// should simply not construct one and skip calling its methods.
type Publisher struct {
	client *redis.Client
	logger *log.Logger
}

// New wraps an already-connected redis.Client.
func New(client *redis.Client, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{client: client, logger: logger}
}

func (p *Publisher) publishInt(field string, value int) {
	if err := p.client.PublishInt(hashKey, field, value); err != nil {
		p.logger.Printf("telemetry: publish %s failed: %v", field, err)
	}
}

func (p *Publisher) publishString(field, value string) {
	if err := p.client.PublishString(hashKey, field, value); err != nil {
		p.logger.Printf("telemetry: publish %s failed: %v", field, err)
	}
}

// State publishes the controller's current top-level state name.
func (p *Publisher) State(name string) {
	p.publishString("state", name)
}

// AssistLevel publishes the currently-set assist level.
func (p *Publisher) AssistLevel(level uint8) {
	p.publishInt("assist-level", int(level))
}

// Light publishes the headlight switch state as 0/1, matching the
// teacher's convention of representing booleans as integer fields.
func (p *Publisher) Light(on bool) {
	v := 0
	if on {
		v = 1
	}
	p.publishInt("light", v)
}

// Battery publishes the battery percentage, millivolts and accumulated
// relative mAh (the uncalibrated coulomb count) in one update.
func (p *Publisher) Battery(percentage uint8, mv uint32, mah uint64) {
	p.publishInt("battery-percentage", int(percentage))
	p.publishInt("battery-mv", int(mv))
	p.publishInt("battery-mah", int(mah))
}

// Trip publishes the two trip counters and the lifetime total, all in
// 10m units as the wire protocol carries them.
func (p *Publisher) Trip(trip1, trip2, total uint32) {
	p.publishInt("trip1", int(trip1))
	p.publishInt("trip2", int(trip2))
	p.publishInt("total-distance", int(total))
}

// ButtonEvent publishes a one-shot button press event (not a hash field --
// a plain pub/sub notification), matching the teacher's use of Publish
// for discrete events rather than PublishString/Int's read-a-value shape.
func (p *Publisher) ButtonEvent(button, event string) {
	if err := p.client.Publish("bms:button", button+":"+event); err != nil {
		p.logger.Printf("telemetry: button event publish failed: %v", err)
	}
}

// HandoffTimeout publishes a one-shot notification that a handoff round
// timed out and the controller fell back to Idle.
func (p *Publisher) HandoffTimeout() {
	if err := p.client.Publish("bms:handoff", "timeout"); err != nil {
		p.logger.Printf("telemetry: handoff-timeout publish failed: %v", err)
	}
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
