/*************************************************************************
 * Copyright 2025 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JWalen/NetworkTap-sub002/eventbus"
	"github.com/JWalen/NetworkTap-sub002/events"
)

const (
	closeGoingAway    = websocket.CloseGoingAway
	closeInternal     = websocket.CloseInternalServerErr
	closeUnauthorized = 4401

	pingInterval = 30 * time.Second
	// two consecutive missed pongs end the connection
	pongWait  = 2*pingInterval + 5*time.Second
	writeWait = 10 * time.Second

	recentBatch = 20

	wsBufferSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		//the appliance UI is served same-origin, other origins carry
		//valid credentials anyway
		return true
	},
}

type wsMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type wsClientMsg struct {
	Filter *eventbus.Filter `json:"filter"`
}

type wsHub struct {
	mtx   sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		conns: map[*websocket.Conn]struct{}{},
	}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mtx.Lock()
	h.conns[c] = struct{}{}
	h.mtx.Unlock()
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mtx.Lock()
	delete(h.conns, c)
	h.mtx.Unlock()
}

// closeAll ends every connection with the given close code, used on
// daemon shutdown.
func (h *wsHub) closeAll(code int) {
	h.mtx.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = map[*websocket.Conn]struct{}{}
	h.mtx.Unlock()
	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ``), time.Now().Add(writeWait))
		c.Close()
	}
}

// handleWS upgrades /ws/alerts. Authentication failures upgrade anyway
// so the client receives the dedicated unauthorized close code instead
// of a broken handshake.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	_, aerr := s.Gate.Authenticate(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if aerr != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeUnauthorized, `unauthorized`),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.hub.add(conn)
	defer func() {
		s.hub.remove(conn)
		conn.Close()
	}()

	sub := s.Bus.Subscribe(eventbus.Filter{})
	defer sub.Close()

	//a lagging socket is torn down rather than silently thinned, the
	//client reconnects and replays from the ring
	lagged := make(chan struct{}, 1)
	sub.OnLag(func(dropped uint64) {
		select {
		case lagged <- struct{}{}:
		default:
		}
	})

	//reader: consume filter updates and pongs until the peer goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var msg wsClientMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Filter != nil {
				sub.SetFilter(*msg.Filter)
			}
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsMsg{Type: `recent`, Data: s.recentForWS()}); err != nil {
		return
	}

	tckr := time.NewTicker(pingInterval)
	defer tckr.Stop()
	for {
		select {
		case <-done:
			return
		case <-lagged:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(closeInternal, `subscriber overflow`),
				time.Now().Add(writeWait))
			return
		case a, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(wsMsg{Type: `alert`, Data: a}); err != nil {
				return
			}
		case <-tckr.C:
			if err := conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) recentForWS() []events.Alert {
	out := s.Bus.RecentAll(recentBatch)
	if out == nil {
		out = []events.Alert{}
	}
	return out
}
