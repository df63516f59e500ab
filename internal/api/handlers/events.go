package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/session"
)

const (
	wsPingInterval = 20 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

func sinceParam(r *http.Request) (uint64, bool) {
	s := r.URL.Query().Get("since")
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}

// Events returns the session's event log after ?since=n.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	since, ok := sinceParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "since must be a non-negative integer")
		return
	}

	var evts []domain.ProgressEvent
	err := h.Sessions.View(r.PathValue("id"), func(s *session.Session) error {
		evts = s.EventsSince(since)
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if evts == nil {
		evts = []domain.ProgressEvent{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"events": evts})
}

// Stream upgrades to a websocket that replays the log after ?since=n and then
// pushes live events. Each event is sent once, in sequence order.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	since, ok := sinceParam(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "since must be a non-negative integer")
		return
	}
	if h.Live == nil {
		writeError(w, r, http.StatusServiceUnavailable, domain.CodeProviderDown, "event stream is not configured")
		return
	}
	id := r.PathValue("id")

	// Subscribe before reading the backlog so nothing falls in between.
	live, err := h.Live.Subscribe(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer h.Live.Unsubscribe(id, live)

	var backlog []domain.ProgressEvent
	if err := h.Sessions.View(id, func(s *session.Session) error {
		backlog = s.EventsSince(since)
		return nil
	}); err != nil {
		writeDomainError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	log := zerolog.Ctx(r.Context())

	// The read loop only services control frames and notices the client leaving.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadTimeout)) })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := since
	send := func(evt domain.ProgressEvent) error {
		if evt.SequenceNo <= last {
			return nil
		}
		last = evt.SequenceNo
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(evt)
	}

	for _, evt := range backlog {
		if err := send(evt); err != nil {
			log.Debug().Err(err).Str("session", id).Msg("ws backlog write failed")
			return
		}
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-live:
			if !ok {
				return
			}
			// The broker drops events for slow readers; refill the gap from the log.
			if evt.SequenceNo > last+1 {
				var missed []domain.ProgressEvent
				if err := h.Sessions.View(id, func(s *session.Session) error {
					missed = s.EventsSince(last)
					return nil
				}); err != nil {
					return
				}
				for _, m := range missed {
					if err := send(m); err != nil {
						log.Debug().Err(err).Str("session", id).Msg("ws backfill write failed")
						return
					}
				}
			}
			if err := send(evt); err != nil {
				log.Debug().Err(err).Str("session", id).Msg("ws write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
