package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/events"
)

// Domain broker key layout (spec.md §6):
//   smf:state              -> {s:[16 numbers], ...}
//   smf:axis:{i}           -> number
//   smf:codebook           -> object
//   smf:history:{tick}     -> snapshot (ttl-bound)
const (
	keySMFState    = "smf:state"
	keySMFCodebook = "smf:codebook"
)

func keySMFAxis(i int) string    { return fmt.Sprintf("smf:axis:%d", i) }
func keySMFHistory(tick int64) string { return fmt.Sprintf("smf:history:%d", tick) }

// EventSMFUpdated fires after every domain-broker write.
const EventSMFUpdated events.Kind = "smf_updated"

// SMFState is the JSON payload stored at smf:state.
type SMFState struct {
	S []float64 `json:"s"`
}

// DomainBroker adds typed convenience operations for the local field's
// semantic vector on top of a plain Broker (spec.md §4.C).
type DomainBroker struct {
	underlying Broker
	bus        *events.Bus

	// rotateMu serializes rotateAxes's read-modify-write against
	// concurrent callers of this DomainBroker; it does not protect
	// against other processes sharing the same underlying broker.
	rotateMu sync.Mutex
}

// NewDomainBroker wraps underlying. bus may be nil, in which case
// smf_updated events are not published.
func NewDomainBroker(underlying Broker, bus *events.Bus) *DomainBroker {
	return &DomainBroker{underlying: underlying, bus: bus}
}

func (d *DomainBroker) publish(data any) {
	if d.bus != nil {
		d.bus.Publish(events.Event{Kind: EventSMFUpdated, Data: data})
	}
}

func (d *DomainBroker) GetSMF(ctx context.Context) (SMFState, bool, error) {
	raw, ok, err := d.underlying.Get(ctx, keySMFState)
	if err != nil || !ok {
		return SMFState{}, ok, err
	}
	var s SMFState
	if err := json.Unmarshal(raw, &s); err != nil {
		return SMFState{}, false, err
	}
	return s, true, nil
}

func (d *DomainBroker) SetSMF(ctx context.Context, s SMFState) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := d.underlying.Set(ctx, keySMFState, raw, SetOptions{}); err != nil {
		return err
	}
	d.publish(s)
	return nil
}

func (d *DomainBroker) GetAxis(ctx context.Context, i int) (float64, bool, error) {
	raw, ok, err := d.underlying.Get(ctx, keySMFAxis(i))
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (d *DomainBroker) SetAxis(ctx context.Context, i int, v float64) error {
	if err := d.underlying.Set(ctx, keySMFAxis(i), []byte(strconv.FormatFloat(v, 'g', -1, 64)), SetOptions{}); err != nil {
		return err
	}
	d.publish(map[string]any{"axis": i, "value": v})
	return nil
}

// RotateAxes applies deltas[i] to the i-th component of the stored semantic
// vector as a read-modify-write, atomic at the single-key granularity of
// the underlying broker (spec.md §5).
func (d *DomainBroker) RotateAxes(ctx context.Context, deltas map[int]float64) (SMFState, error) {
	d.rotateMu.Lock()
	defer d.rotateMu.Unlock()

	s, ok, err := d.GetSMF(ctx)
	if err != nil {
		return SMFState{}, err
	}
	if !ok {
		return SMFState{}, fmt.Errorf("broker: rotateAxes: no smf state stored yet")
	}
	for i, delta := range deltas {
		if i < 0 || i >= len(s.S) {
			continue
		}
		s.S[i] += delta
	}
	if err := d.SetSMF(ctx, s); err != nil {
		return SMFState{}, err
	}
	return s, nil
}

func (d *DomainBroker) GetCodebook(ctx context.Context) (map[string]any, bool, error) {
	raw, ok, err := d.underlying.Get(ctx, keySMFCodebook)
	if err != nil || !ok {
		return nil, ok, err
	}
	var cb map[string]any
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, false, err
	}
	return cb, true, nil
}

func (d *DomainBroker) SetCodebook(ctx context.Context, cb map[string]any) error {
	raw, err := json.Marshal(cb)
	if err != nil {
		return err
	}
	if err := d.underlying.Set(ctx, keySMFCodebook, raw, SetOptions{}); err != nil {
		return err
	}
	d.publish(cb)
	return nil
}

func (d *DomainBroker) StoreHistory(ctx context.Context, tick int64, snapshot any, ttl time.Duration) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := d.underlying.Set(ctx, keySMFHistory(tick), raw, SetOptions{TTL: ttl}); err != nil {
		return err
	}
	d.publish(snapshot)
	return nil
}

func (d *DomainBroker) GetHistory(ctx context.Context, tick int64, out any) (bool, error) {
	raw, ok, err := d.underlying.Get(ctx, keySMFHistory(tick))
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}
