package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/task-tracker/internal/notify"
	"github.com/Tomlord1122/task-tracker/internal/testutil"
)

func wsURL(srv *httptest.Server, token, channel string) string {
	return fmt.Sprintf("%s/api/ws?token=%s&channel=%s", strings.Replace(srv.URL, "http", "ws", 1), token, channel)
}

func TestWebsocketReceivesTaskEvents(t *testing.T) {
	app := newTestApp(t)
	owner := testutil.SeedUser(t, app.db, "owner")
	assignee := testutil.SeedUser(t, app.db, "assignee")
	srv := httptest.NewServer(app.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, app.token(t, assignee.ID), notify.UserTopic(assignee.ID)), nil)
	require.NoError(t, err)
	defer conn.Close()

	body := fmt.Sprintf(`{"title":"delegated","priority":"low","status":"pending","assigned_to_id":%d}`, assignee.ID)
	rec := app.do(t, http.MethodPost, "/api/tasks", owner.ID, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame struct {
		Event   string `json:"event"`
		Channel string `json:"channel"`
		Data    struct {
			ID     uint   `json:"id"`
			Title  string `json:"title"`
			Status string `json:"status"`
			Action string `json:"action"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "TaskUpdated", frame.Event)
	assert.Equal(t, notify.UserTopic(assignee.ID), frame.Channel)
	assert.Equal(t, "delegated", frame.Data.Title)
	assert.Equal(t, "created", frame.Data.Action)
}

func TestWebsocketRejectsForeignChannel(t *testing.T) {
	app := newTestApp(t)
	me := testutil.SeedUser(t, app.db, "me")
	other := testutil.SeedUser(t, app.db, "other")
	srv := httptest.NewServer(app.handler)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, app.token(t, me.ID), notify.UserTopic(other.ID)), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, app.hub.Subscribers(notify.UserTopic(other.ID)))
}
