package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertSilent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "checkins:7", CheckinTopic(7))
	assert.Equal(t, "messages:7:ana", MessageTopic(7, "ana"))

	assert.Equal(t, "checkins:7", CheckinEvent(CheckinUpdate, 7, "ana").Topic())
	msg := model.Message{VenueID: 7, FromNickname: "beto", ToNickname: "ana", Text: "hola"}
	ev := MessageEvent(msg)
	assert.Equal(t, "messages:7:ana", ev.Topic())
	assert.Equal(t, "hola", ev.Message.Text)
}

func TestLocalBroker_Delivery(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBroker()

	checkins, err := b.Subscribe(ctx, CheckinTopic(1))
	require.NoError(t, err)
	defer checkins.Close()
	inbox, err := b.Subscribe(ctx, MessageTopic(1, "ana"))
	require.NoError(t, err)
	defer inbox.Close()

	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinInsert, 1, "beto")))
	ev := receive(t, checkins)
	assert.Equal(t, CheckinInsert, ev.Kind)
	assert.Equal(t, "beto", ev.Nickname)
	assertSilent(t, inbox)

	require.NoError(t, b.Publish(ctx, MessageEvent(model.Message{VenueID: 1, FromNickname: "beto", ToNickname: "ana"})))
	assert.Equal(t, MessageInsert, receive(t, inbox).Kind)
	assertSilent(t, checkins)

	// Other venues and other recipients are isolated.
	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinInsert, 2, "x")))
	require.NoError(t, b.Publish(ctx, MessageEvent(model.Message{VenueID: 1, ToNickname: "carla"})))
	assertSilent(t, checkins)
	assertSilent(t, inbox)
}

func TestLocalBroker_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBroker()

	sub, err := b.Subscribe(ctx, CheckinTopic(1), MessageTopic(1, "ana"))
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)

	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinUpdate, 1, "ana")))
	b.mu.RLock()
	assert.Empty(t, b.topics)
	b.mu.RUnlock()
}

func TestRedisBroker_RoundTrip(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	b, err := NewRedisBroker(ctx, "redis://"+s.Addr())
	require.NoError(t, err)
	defer b.Close()

	sub, err := b.Subscribe(ctx, CheckinTopic(3), MessageTopic(3, "ana"))
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinInsert, 3, "beto")))
	ev := receive(t, sub)
	assert.Equal(t, CheckinInsert, ev.Kind)
	assert.EqualValues(t, 3, ev.VenueID)

	require.NoError(t, b.Publish(ctx, MessageEvent(model.Message{VenueID: 3, FromNickname: "beto", ToNickname: "ana", Text: "hola"})))
	ev = receive(t, sub)
	assert.Equal(t, MessageInsert, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "hola", ev.Message.Text)

	sub.Close()
	sub.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestRedisBroker_DiscardsMalformedPayloads(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	b := NewRedisBrokerFromClient(client)
	defer b.Close()

	sub, err := b.Subscribe(ctx, CheckinTopic(1))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, client.Publish(ctx, CheckinTopic(1), "not json").Err())
	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinUpdate, 1, "ana")))
	assert.Equal(t, CheckinUpdate, receive(t, sub).Kind)
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestServeWS_StreamsEvents(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBroker()
	sub, err := b.Subscribe(ctx, CheckinTopic(1))
	require.NoError(t, err)

	log := logrus.NewEntry(logrus.New())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(w, r, sub, log, nil)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinInsert, 1, "beto")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, CheckinInsert, ev.Kind)
	assert.Equal(t, "beto", ev.Nickname)

	// Closing the subscription ends the stream with a close frame.
	sub.Close()
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestServeWS_ClosesAfterLastEvent(t *testing.T) {
	ctx := context.Background()
	b := NewLocalBroker()
	sub, err := b.Subscribe(ctx, CheckinTopic(1))
	require.NoError(t, err)

	last := func(ev Event) bool { return ev.Kind == CheckinUpdate && ev.Nickname == "ana" }
	log := logrus.NewEntry(logrus.New())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(w, r, sub, log, last)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinUpdate, 1, "beto")))
	require.NoError(t, b.Publish(ctx, CheckinEvent(CheckinUpdate, 1, "ana")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "beto", ev.Nickname)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "ana", ev.Nickname)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
