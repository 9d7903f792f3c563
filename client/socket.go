package client

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/picsync/picsync"
)

type listenRequest struct {
	Type     string   `json:"type"`
	ImageIDs []string `json:"imageIds,omitempty"`
}

// socketLoop keeps one realtime connection alive for the lifetime of
// the store, re-dialing with capped backoff. After every successful
// (re)connect each subscription refetches its snapshot, so missed
// events and unconfirmed optimistic writes converge.
func (s *Store) socketLoop() {
	wait := time.Second

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.realtimeURL(), nil)
		if err != nil {
			slog.Debug(
				"Realtime dial failed",
				slog.String("error", err.Error()),
				slog.String("module", "store"),
			)
			select {
			case <-s.shutdown:
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > maxReconnectWait {
				wait = maxReconnectWait
			}
			continue
		}

		wait = time.Second
		s.runSocket(conn)
		conn.Close()
	}
}

func (s *Store) runSocket(conn *websocket.Conn) {
	err := conn.WriteJSON(listenRequest{Type: "listen", ImageIDs: s.listenImageIDs()})
	if err != nil {
		return
	}

	for _, id := range s.subscriptionIDs() {
		go s.refresh(id)
	}

	events := make(chan picsync.Event)
	readErr := make(chan error, 1)

	go func() {
		for {
			var event picsync.Event
			if err := conn.ReadJSON(&event); err != nil {
				readErr <- err
				return
			}
			events <- event
		}
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case err := <-readErr:
			slog.Debug(
				"Realtime connection lost",
				slog.String("error", err.Error()),
				slog.String("module", "store"),
			)
			return
		case event := <-events:
			s.apply(event)
		case <-s.resub:
			err := conn.WriteJSON(listenRequest{Type: "listen", ImageIDs: s.listenImageIDs()})
			if err != nil {
				return
			}
		case <-heartbeat.C:
			err := conn.WriteJSON(listenRequest{Type: "h"})
			if err != nil {
				return
			}
		}
	}
}

func (s *Store) realtimeURL() string {
	u := s.serverURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/realtime"
}
