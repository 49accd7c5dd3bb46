package telegram

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/taskdesk/usecase/notify"
)

type call struct {
	path string
	body map[string]any
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	reply func(method string) string
}

func (f *fakeAPI) handle(ctx *fasthttp.RequestCtx) {
	var body map[string]any
	_ = json.Unmarshal(ctx.PostBody(), &body)
	path := string(ctx.Path())

	f.mu.Lock()
	f.calls = append(f.calls, call{path: path, body: body})
	f.mu.Unlock()

	ctx.SetContentType("application/json")
	method := path[len("/bottest-token/"):]
	if f.reply != nil {
		ctx.SetBodyString(f.reply(method))
		return
	}
	ctx.SetBodyString(`{"ok":true,"result":true}`)
}

func (f *fakeAPI) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: api.handle}
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	client, err := NewClient(Config{
		Token:   "test-token",
		APIURL:  "http://telegram.test/",
		Timeout: 2 * time.Second,
		Dial:    func(string) (net.Conn, error) { return ln.Dial() },
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}

func TestClient_SendRendersKeyboard(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	msg := notify.Message{
		Text:     "Задача #1",
		Controls: [][]notify.Control{{{Text: "▶️ В процессе", Tag: "t:1:inprog"}}},
		Silent:   true,
	}
	require.NoError(t, client.Send(context.Background(), 42, msg))

	got := api.last()
	assert.Equal(t, "/bottest-token/sendMessage", got.path)
	assert.Equal(t, float64(42), got.body["chat_id"])
	assert.Equal(t, "Задача #1", got.body["text"])
	assert.Equal(t, true, got.body["disable_notification"])

	markup, ok := got.body["reply_markup"].(map[string]any)
	require.True(t, ok)
	rows := markup["inline_keyboard"].([]any)
	button := rows[0].([]any)[0].(map[string]any)
	assert.Equal(t, "t:1:inprog", button["callback_data"])
}

func TestClient_SendWithoutControlsOmitsMarkup(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	require.NoError(t, client.Send(context.Background(), 42, notify.Text("hi")))
	_, present := api.last().body["reply_markup"]
	assert.False(t, present)
}

func TestClient_APIErrors(t *testing.T) {
	api := &fakeAPI{reply: func(method string) string {
		if method == "editMessageText" {
			return `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`
		}
		return `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	}}
	client := newTestClient(t, api)

	err := client.Send(context.Background(), 42, notify.Text("hi"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "sendMessage", apiErr.Method)

	assert.NoError(t, client.Edit(context.Background(), 42, 7, notify.Text("same")))
}

func TestClient_GetUpdates(t *testing.T) {
	api := &fakeAPI{reply: func(string) string {
		return `{"ok":true,"result":[{"update_id":5,"message":{"message_id":1,"from":{"id":10},"chat":{"id":10,"type":"private"},"text":"hi"}}]}`
	}}
	client := newTestClient(t, api)

	updates, err := client.GetUpdates(context.Background(), 5, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(5), updates[0].UpdateID)
	assert.Equal(t, "hi", updates[0].Message.Text)

	got := api.last()
	assert.Equal(t, "/bottest-token/getUpdates", got.path)
	assert.Equal(t, float64(5), got.body["offset"])
	assert.Equal(t, float64(1), got.body["timeout"])
}

func TestClient_WebhookManagement(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	require.NoError(t, client.SetWebhook(context.Background(), "https://bot.example/telegram/webhook", "s3cret"))
	got := api.last()
	assert.Equal(t, "/bottest-token/setWebhook", got.path)
	assert.Equal(t, "s3cret", got.body["secret_token"])

	require.NoError(t, client.DeleteWebhook(context.Background()))
	assert.Equal(t, "/bottest-token/deleteWebhook", api.last().path)

	require.NoError(t, client.AnswerCallback(context.Background(), "cb"))
	assert.Equal(t, "cb", api.last().body["callback_query_id"])
}

func TestClient_CanceledContext(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Send(ctx, 1, notify.Text("x")), context.Canceled)
}
