package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events   []Event
	closeErr error
	closed   bool
}

func (r *recorder) Notify(_ context.Context, ev Event) { r.events = append(r.events, ev) }
func (r *recorder) Close() error {
	r.closed = true
	return r.closeErr
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Nop{}, b}

	m.Notify(context.Background(), Event{Kind: StageStarted, Stage: "preprocess"})
	m.Notify(context.Background(), Event{Kind: StageFinished, Stage: "preprocess"})

	assert.Len(t, a.events, 2)
	assert.Equal(t, a.events, b.events)
	assert.Equal(t, StageFinished, b.events[1].Kind)
}

func TestMulti_CloseJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	a, b, c := &recorder{closeErr: errA}, &recorder{}, &recorder{closeErr: errB}

	err := Multi{a, b, c}.Close()

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, a.closed && b.closed && c.closed, "every notifier must be closed")
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	n.Notify(context.Background(), Event{})
	assert.NoError(t, n.Close())
}
