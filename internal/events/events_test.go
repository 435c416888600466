package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koabot/internal/models"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "koabot.")

	ev := Event{
		Kind:      models.KindWastage,
		Action:    ActionCreated,
		ChatID:    "123",
		RecordIDs: []string{"wst_1"},
		At:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, fc.subjects, 1)
	assert.Equal(t, "koabot.wastage.created", fc.subjects[0])

	var got Event
	require.NoError(t, json.Unmarshal(fc.payloads[0], &got))
	assert.Equal(t, ev, got)

	require.NoError(t, p.Close())
	assert.True(t, fc.drained)
}

func TestNATSPublisher_NoPrefix(t *testing.T) {
	p := newPublisher(&fakeConn{}, "")
	assert.Equal(t, "reception.undone", p.Subject(Event{Kind: models.KindReception, Action: ActionUndone}))
}

func TestNATSPublisher_Errors(t *testing.T) {
	boom := errors.New("boom")
	p := newPublisher(&fakeConn{err: boom}, "k")
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Kind: models.KindProduction}), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fc := &fakeConn{}
	p = newPublisher(fc, "k")
	assert.ErrorIs(t, p.Publish(ctx, Event{}), context.Canceled)
	assert.Empty(t, fc.subjects)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
