package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"teamroping/internal/config"
	"teamroping/internal/service"
	"teamroping/internal/store"
)

const testAdminToken = "admin-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.Config{
		AdminToken:    testAdminToken,
		AdminPassword: "letmein",
		JWTSecret:     "test-secret",
	}
	svc := service.New(store.NewMemoryStore(), zap.NewNop(), service.WithSeed(7))
	return NewServer(cfg, svc, rdb, zap.NewNop()), mr
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var admin = map[string]string{"X-Admin-Token": testAdminToken}

func createEvent(t *testing.T, h http.Handler, body map[string]any) int64 {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/events", body, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ev := decode(t, w)["event"].(map[string]any)
	return int64(ev["id"].(float64))
}

func createRoper(t *testing.T, h http.Handler, first, specialty string, rating int) int64 {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/ropers", map[string]any{
		"first_name": first, "last_name": "Test", "specialty": specialty, "rating": rating,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/api/ropers", map[string]any{"first_name": "A", "specialty": "header"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/ropers", map[string]any{"first_name": "A", "specialty": "header"},
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/ropers", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads are public")
}

func TestAdminLoginSessionLifecycle(t *testing.T) {
	srv, mr := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/admin/login", map[string]string{"password": "letmein"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)
	bearer := map[string]string{"Authorization": "Bearer " + token}

	w = doJSON(t, r, http.MethodPost, "/api/ropers", map[string]any{"first_name": "Cody", "specialty": "header", "rating": 3}, bearer)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, mr.Keys(), 1)

	w = doJSON(t, r, http.MethodPost, "/api/admin/logout", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/ropers", map[string]any{"first_name": "Lane", "specialty": "heeler", "rating": 2}, bearer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodGet, "/api/events/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["kind"])

	w = doJSON(t, r, http.MethodGet, "/api/events/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	eventID := createEvent(t, r, map[string]any{"name": "Guards", "rounds": 2})
	h := createRoper(t, r, "H", "header", 3)
	l := createRoper(t, r, "L", "heeler", 2)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/events/%d/draw", eventID), map[string]any{"round": 2}, admin)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code, w.Body.String())
	assert.Equal(t, "precondition", decode(t, w)["kind"])

	path := fmt.Sprintf("/api/events/%d/teams", eventID)
	w = doJSON(t, r, http.MethodPost, path, map[string]any{"header_id": h, "heeler_id": l}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPost, path, map[string]any{"header_id": h, "heeler_id": l}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["kind"])

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/events/%d/teams/generate", eventID), map[string]any{"strategy": "round-robin"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	eventID := createEvent(t, r, map[string]any{"name": "Friday Jackpot", "rounds": 2, "prize_pool": 1000, "deduction_pct": "0.1"})
	createRoper(t, r, "H1", "header", 3)
	createRoper(t, r, "H2", "header", 4)
	createRoper(t, r, "L1", "heeler", 2)
	createRoper(t, r, "L2", "heeler", 3)
	base := fmt.Sprintf("/api/events/%d", eventID)

	w := doJSON(t, r, http.MethodPost, base+"/teams/generate", map[string]any{"strategy": "balanced"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["created"])

	w = doJSON(t, r, http.MethodPost, base+"/draw", map[string]any{"round": 1}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["slots"])

	w = doJSON(t, r, http.MethodGet, base+"/draw?round=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode(t, w)["slots"].([]any)
	require.Len(t, slots, 2)
	first := slots[0].(map[string]any)["team_id"].(float64)

	w = doJSON(t, r, http.MethodPost, base+"/runs", map[string]any{"team_id": first, "round": 1, "position": 1, "time_sec": 0}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "time required", decode(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, base+"/runs", map[string]any{"team_id": first, "round": 1, "position": 1, "time_sec": 8.5, "penalty": 5}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["locked"])
	assert.EqualValues(t, 13.5, body["run"].(map[string]any)["total_sec"])

	w = doJSON(t, r, http.MethodPost, base+"/draw", map[string]any{"round": 1, "reseed": true}, admin)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = doJSON(t, r, http.MethodGet, base, nil, nil)
	assert.Equal(t, "locked", decode(t, w)["event"].(map[string]any)["status"])

	w = doJSON(t, r, http.MethodPost, base+"/payoffs/preset", map[string]any{"preset": "2"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["rules"], 2)

	w = doJSON(t, r, http.MethodGet, base+"/payouts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payouts := decode(t, w)
	assert.True(t, decimal.RequireFromString(payouts["net_pot"].(string)).Equal(decimal.NewFromInt(900)))
	firstPlace := payouts["payouts"].([]any)[0].(map[string]any)
	assert.True(t, decimal.RequireFromString(firstPlace["amount"].(string)).Equal(decimal.NewFromInt(540)))

	w = doJSON(t, r, http.MethodGet, base+"/standings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["standings"].([]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, first, rows[0].(map[string]any)["team_id"])

	w = doJSON(t, r, http.MethodGet, base+"/payoff-board", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	places := decode(t, w)["places"].([]any)
	require.Len(t, places, 2)
	assert.Equal(t, true, places[1].(map[string]any)["vacant"])

	w = doJSON(t, r, http.MethodGet, base+"/export", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("event_%d.xlsx", eventID))
	assert.NotEmpty(t, w.Body.Bytes())

	w = doJSON(t, r, http.MethodPatch, base+"/status", map[string]any{"status": "finalized"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = doJSON(t, r, http.MethodPost, base+"/runs", map[string]any{"team_id": first, "round": 1, "position": 1, "time_sec": 7.9}, admin)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestEventPinGuardsDestructiveCalls(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()
	eventID := createEvent(t, r, map[string]any{"name": "Pinned", "rounds": 1, "admin_pin": "1234"})
	path := fmt.Sprintf("/api/events/%d/teams", eventID)

	w := doJSON(t, r, http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, path+"/generate", map[string]any{"clear_existing": true}, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)

	withPin := map[string]string{"X-Admin-Token": testAdminToken, "X-Event-Pin": "1234"}
	w = doJSON(t, r, http.MethodDelete, path, nil, withPin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode(t, w)["deleted"])
}

func TestHubNotifyRoutesByEvent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	one := NewWSClient(1, nil)
	two := NewWSClient(2, nil)
	all := NewWSClient(0, nil)
	hub.Register(one)
	hub.Register(two)
	hub.Register(all)

	hub.Notify(1, service.KindRunSaved, map[string]int{"round": 1})

	require.Len(t, one.SendCh, 1)
	assert.Len(t, two.SendCh, 0)
	assert.Len(t, all.SendCh, 1)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(<-one.SendCh, &msg))
	assert.Equal(t, service.KindRunSaved, msg.Type)
	assert.EqualValues(t, 1, msg.EventID)

	hub.Unregister(one)
	assert.Equal(t, 0, hub.Subscribers(1))
}

func TestWebsocketFeed(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	ctx := context.Background()

	ev, err := srv.Svc.CreateEvent(ctx, service.CreateEventInput{Name: "Live", Rounds: 1})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws?event_id=%d", ev.ID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)

	require.Eventually(t, func() bool { return srv.Hub.Subscribers(ev.ID) == 1 }, 2*time.Second, 10*time.Millisecond)
	srv.Hub.Notify(ev.ID, service.KindDrawGenerated, map[string]int{"round": 1, "slots": 3})

	var update WSMessage
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, service.KindDrawGenerated, update.Type)
	assert.Equal(t, ev.ID, update.EventID)
}

func TestCaptureRate(t *testing.T) {
	srv, mr := newTestServer(t)
	srv.bumpCaptures(4)
	srv.bumpCaptures(4)
	srv.bumpCaptures(4)
	now := time.Now().Unix()
	srv.flushCaptures(context.Background(), now)

	assert.True(t, mr.Exists(captureKey(4, now)))
	avg, last := srv.captureRate(context.Background(), 4, now)
	assert.EqualValues(t, 3, last)
	assert.InDelta(t, 0.6, avg, 1e-9)
}

func TestUpdateTeamStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()
	eventID := createEvent(t, r, map[string]any{"name": "Bench", "rounds": 1, "entry_fee": 50})
	h := createRoper(t, r, "H1", "header", 3)
	l := createRoper(t, r, "L1", "heeler", 2)
	h2 := createRoper(t, r, "H2", "header", 3)
	l2 := createRoper(t, r, "L2", "heeler", 2)
	base := fmt.Sprintf("/api/events/%d", eventID)

	w := doJSON(t, r, http.MethodPost, base+"/teams", map[string]any{"header_id": h, "heeler_id": l}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	benched := int64(decode(t, w)["id"].(float64))
	w = doJSON(t, r, http.MethodPost, base+"/teams", map[string]any{"header_id": h2, "heeler_id": l2}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	path := fmt.Sprintf("%s/teams/%d", base, benched)
	w = doJSON(t, r, http.MethodPatch, path, map[string]any{"status": "retired"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodPatch, path, map[string]any{"status": "Inactive"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPatch, path, map[string]any{"status": "Inactive"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "inactive", decode(t, w)["status"])

	w = doJSON(t, r, http.MethodPost, base+"/draw", map[string]any{"round": 1}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["slots"])

	w = doJSON(t, r, http.MethodGet, base+"/payouts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.RequireFromString(decode(t, w)["total_pot"].(string)).Equal(decimal.NewFromInt(50)))

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("%s/teams/%d", base, 9999), map[string]any{"status": "active"}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventAndSeriesEditing(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	w := doJSON(t, r, http.MethodPost, "/api/series", map[string]any{"name": "Spring"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	seriesID := int64(decode(t, w)["id"].(float64))
	seriesPath := fmt.Sprintf("/api/series/%d", seriesID)

	w = doJSON(t, r, http.MethodPut, seriesPath, map[string]any{"name": "Spring Tour", "status": "active", "start_date": "2026-03-01"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "active", decode(t, w)["status"])
	w = doJSON(t, r, http.MethodPut, seriesPath, map[string]any{"name": "x", "end_date": "03/01"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	eventID := createEvent(t, r, map[string]any{"series_id": seriesID, "name": "Leg 1", "rounds": 3, "admin_pin": "1234"})
	eventPath := fmt.Sprintf("/api/events/%d", eventID)

	w = doJSON(t, r, http.MethodPut, eventPath, map[string]any{"name": "Leg One", "rounds": 2, "entry_fee": "60", "date": "2026-03-08"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ev := decode(t, w)["event"].(map[string]any)
	assert.Equal(t, "Leg One", ev["name"])
	assert.EqualValues(t, 2, ev["rounds"])

	w = doJSON(t, r, http.MethodPut, eventPath, map[string]any{"name": "Leg One", "rounds": 0}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, eventPath, nil, admin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, http.MethodDelete, eventPath, nil, map[string]string{"X-Admin-Token": testAdminToken, "X-Event-Pin": "1234"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodGet, eventPath, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, seriesPath, nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodGet, "/api/series", nil, nil)
	assert.Empty(t, decode(t, w)["series"])
}

func TestWSClientDropsWhenBacklogFull(t *testing.T) {
	client := NewWSClient(1, nil)
	for i := 0; i < wsSendBacklog+3; i++ {
		client.Send([]byte("{}"))
	}
	assert.Len(t, client.SendCh, wsSendBacklog)
	assert.EqualValues(t, 3, client.Dropped())
}

func TestWebsocketServerPings(t *testing.T) {
	prev := wsPingPeriod
	wsPingPeriod = 20 * time.Millisecond
	t.Cleanup(func() { wsPingPeriod = prev })

	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	pings := make(chan struct{}, 8)
	conn.SetPingHandler(func(data string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping from server")
	}
}
