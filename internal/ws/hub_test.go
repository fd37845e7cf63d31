package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/carfocus/internal/domain/audio"
	"github.com/GriffinCanCode/carfocus/internal/domain/caraudio"
	"github.com/GriffinCanCode/carfocus/internal/infrastructure/monitoring"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*Hub, *monitoring.Metrics, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(zaptest.NewLogger(t), metrics)
	router := gin.New()
	router.GET("/ws", hub.HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, metrics, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, TypeWelcome, welcome.Type)
	require.NotEmpty(t, welcome.Subscriber)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func waitSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Count() == n }, 5*time.Second, 5*time.Millisecond)
}

func TestFocusEventsReachOwnClient(t *testing.T) {
	hub, metrics, url := newTestServer(t)
	music := dial(t, url+"?client_id=music1")
	nav := dial(t, url+"?client_id=nav1")
	waitSubscribers(t, hub, 2)

	info := audio.FocusInfo{ClientID: "music1", ClientUID: 1000, PackageName: "com.example.music"}
	assert.Equal(t, audio.RequestGranted, hub.DispatchFocusChange(info, audio.FocusLossTransientCanDuck))
	hub.SetFocusRequestResult(audio.FocusInfo{ClientID: "nav1"}, audio.RequestGranted)

	msg := read(t, music)
	assert.Equal(t, TypeFocusChange, msg.Type)
	assert.Equal(t, "LOSS_TRANSIENT_CAN_DUCK", msg.Change)
	assert.Equal(t, 1000, msg.UID)

	msg = read(t, nav)
	assert.Equal(t, TypeRequestResult, msg.Type)
	assert.Equal(t, "granted", msg.Result)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.WSConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSMessages.WithLabelValues("out", TypeFocusChange)))
}

func TestDispatchWithoutSubscriberFails(t *testing.T) {
	hub, _, url := newTestServer(t)
	dial(t, url)
	waitSubscribers(t, hub, 1)

	assert.Equal(t, audio.RequestFailed, hub.DispatchFocusChange(audio.FocusInfo{ClientID: "music1"}, audio.FocusLoss))
}

func TestVolumeEventsBroadcast(t *testing.T) {
	hub, _, url := newTestServer(t)
	a := dial(t, url)
	b := dial(t, url+"?client_id=music1")
	waitSubscribers(t, hub, 2)

	hub.OnGroupVolumeChanged(1, 0, caraudio.FlagShowUI)
	hub.OnMasterMuteChanged(0, caraudio.FlagFromKey)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := read(t, conn)
		assert.Equal(t, TypeVolumeChanged, msg.Type)
		require.NotNil(t, msg.ZoneID)
		require.NotNil(t, msg.GroupID)
		assert.Equal(t, 1, *msg.ZoneID)
		assert.Equal(t, 0, *msg.GroupID)
		assert.Equal(t, int(caraudio.FlagShowUI), msg.Flags)

		msg = read(t, conn)
		assert.Equal(t, TypeMasterMute, msg.Type)
	}
}

func TestPingPong(t *testing.T) {
	_, _, url := newTestServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, TypePong, read(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "unknown message type", msg.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, "malformed message", read(t, conn).Message)
}

func TestClientDisconnectUnsubscribes(t *testing.T) {
	hub, metrics, url := newTestServer(t)
	conn := dial(t, url+"?client_id=music1")
	waitSubscribers(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	waitSubscribers(t, hub, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WSConnections))
}

func TestHubCloseDisconnects(t *testing.T) {
	hub, _, url := newTestServer(t)
	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
