package natssink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakePublisher) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func TestHandlePublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	s := New(pub, "terra.oracle.", zerolog.Nop())

	err := s.Handle(context.Background(), events.PriceAbstain{
		Height:          77,
		OperatorAddress: "terravaloper1a",
		Denoms:          []string{"ukrw"},
		TxHash:          "HASH",
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "terra.oracle.price_abstain", msg.Subject)
	assert.NotEmpty(t, msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))

	var env struct {
		ID     string                 `json:"id"`
		Kind   string                 `json:"kind"`
		Height uint64                 `json:"height"`
		Event  map[string]interface{} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, msg.Header.Get(nats.MsgIdHdr), env.ID)
	assert.Equal(t, "price_abstain", env.Kind)
	assert.Equal(t, uint64(77), env.Height)
	assert.Equal(t, []interface{}{"ukrw"}, env.Event["denoms"])
}

func TestDefaultPrefixAndErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("slow consumer")}
	s := New(pub, "", zerolog.Nop())
	assert.Equal(t, "oracle.events.liveness", s.Subject(events.KindLiveness))

	err := s.Handle(context.Background(), events.Liveness{Height: 1})
	assert.ErrorContains(t, err, "slow consumer")

	closed := New(nil, "x", zerolog.Nop())
	assert.ErrorIs(t, closed.Handle(context.Background(), events.Stop{}), ErrNotConnected)
	assert.NoError(t, closed.Close())
}

func TestMessageIDsAreUnique(t *testing.T) {
	pub := &fakePublisher{}
	s := New(pub, "p", zerolog.Nop())
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Handle(context.Background(), events.Liveness{Height: 5}))
	}
	ids := map[string]struct{}{}
	for _, m := range pub.msgs {
		ids[m.Header.Get(nats.MsgIdHdr)] = struct{}{}
	}
	assert.Len(t, ids, 3)
}
