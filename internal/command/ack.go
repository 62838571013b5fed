package command

import "context"

// Ack is the pending outcome of one publish.
type Ack struct {
	// ID correlates the publish with its log lines.
	ID    string
	Topic string

	done chan struct{}
	err  error
}

func newAck(id, topic string) *Ack {
	return &Ack{ID: id, Topic: topic, done: make(chan struct{})}
}

// failedAck returns an already resolved Ack.
func failedAck(id, topic string, err error) *Ack {
	a := newAck(id, topic)
	a.resolve(err)
	return a
}

func (a *Ack) resolve(err error) {
	a.err = err
	close(a.done)
}

// Done is closed once the outcome is known.
func (a *Ack) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the broker acknowledges the publish or ctx ends. A
// cancelled wait does not cancel the publish itself.
func (a *Ack) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the outcome, or nil while still pending.
func (a *Ack) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}
