package httpcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/taskdesk/pkg/logger"
)

func TestAttach_PropagatesRequestIDAndActor(t *testing.T) {
	var reqCtx fasthttp.RequestCtx
	reqCtx.Request.Header.Set(HeaderRequestID, " upd-42 ")
	reqCtx.SetUserValue(ActorValue, int64(7))

	ctx, cancel := NewAdapter(time.Second).Attach(&reqCtx)
	defer cancel()

	assert.Equal(t, "upd-42", appLogger.RequestID(ctx))
	assert.Equal(t, "upd-42", string(reqCtx.Response.Header.Peek(HeaderRequestID)))

	actor, ok := Actor(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), actor)

	_, hasDeadline := ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestAttach_GeneratesRequestID(t *testing.T) {
	var reqCtx fasthttp.RequestCtx

	ctx, cancel := NewAdapter(0).Attach(&reqCtx)
	defer cancel()

	assert.Len(t, appLogger.RequestID(ctx), 36)
	_, ok := Actor(ctx)
	assert.False(t, ok, "anonymous requests carry no actor")
	_, ok = Actor(context.Background())
	assert.False(t, ok)
}
