package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-tracker/internal/notify"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The handshake is authenticated by token, not by cookie, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler streams the events of one private channel to the client.
// The channel must be the authenticated user's own.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = notify.UserTopic(user.ID)
	}
	if !notify.AuthorizeChannel(user.ID, channel) {
		s.respondWithError(w, http.StatusForbidden, "You may not listen on this channel")
		return
	}

	// Subscribe before the handshake completes so no event published right
	// after the client sees the upgrade is lost.
	sub := s.hub.Subscribe(channel)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Unsubscribe(sub)
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}

	log := s.log.WithFields(logrus.Fields{"channel": channel, "user_id": user.ID})
	log.Debug("websocket subscribed")

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, sub, done, log)

	s.hub.Unsubscribe(sub)
	_ = conn.Close()
	log.Debug("websocket closed")
}

// readPump discards client frames and closes done when the peer goes away.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, sub *notify.Subscription, done <-chan struct{}, log logrus.FieldLogger) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("websocket write")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
