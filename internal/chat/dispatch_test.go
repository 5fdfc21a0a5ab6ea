package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleFrameRoutesEvents(t *testing.T) {
	f := newFixture()
	c1 := connect(t, f, "c1", "tok-alice")
	ctx := context.Background()

	f.coord.HandleFrame(ctx, "c1", []byte(`{"event":"sendMessage","data":{"message":"one"}}`))
	f.coord.HandleFrame(ctx, "c1", []byte(`{"event":"sendMessage","data":{"content":"two"}}`))
	f.coord.HandleFrame(ctx, "c1", []byte(`{"event":"getConnectedUsers"}`))
	f.coord.HandleFrame(ctx, "c1", []byte(`{"event":"getRecentMessages","data":{}}`))

	msgs := c1.Named(EventNewMessage)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Data.(MessageView).Message)
	assert.Equal(t, "two", msgs[1].Data.(MessageView).Message)
	assert.Len(t, c1.Named(EventConnectedUsers), 1)
	assert.Len(t, c1.Named(EventRecentMessages), 2)
}

func TestHandleFrameRejectsMalformedInput(t *testing.T) {
	f := newFixture()
	c1 := connect(t, f, "c1", "tok-alice")

	f.coord.HandleFrame(context.Background(), "c1", []byte(`not json`))
	f.coord.HandleFrame(context.Background(), "c1", []byte(`{"event":"sendMessage","data":"oops"}`))

	errs := c1.Named(EventMessageError)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrorPayload{Error: "Invalid message format"}, errs[0].Data)
	assert.Zero(t, f.messages.Count())
}

func TestHandleFrameIgnoresUnknownEvents(t *testing.T) {
	f := newFixture()
	c1 := connect(t, f, "c1", "tok-alice")
	before := len(c1.Events())

	f.coord.HandleFrame(context.Background(), "c1", []byte(`{"event":"typing","data":{}}`))
	assert.Len(t, c1.Events(), before)
}
