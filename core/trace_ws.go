package core

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/encodeous/edgeflow/state"
	"github.com/gorilla/websocket"
)

const TracePath = "/debug/trace"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// register and unregister panic once the trace has been closed on shutdown
func tryRegister(trace *RoundTrace, ch chan interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trace closed: %v", r)
		}
	}()
	trace.Register(ch)
	return nil
}

func tryUnregister(trace *RoundTrace, ch chan interface{}) {
	// keep draining so the broadcaster is never stuck sending to ch
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
			case <-done:
				return
			}
		}
	}()
	defer close(done)
	defer func() {
		_ = recover()
	}()
	trace.Unregister(ch)
}

// TraceHandler streams a RoundReport as JSON to websocket clients after every round
func TraceHandler(s *state.State, trace *RoundTrace) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if s.Context.Err() != nil {
			http.Error(w, "node is stopping", http.StatusServiceUnavailable)
			return
		}
		ch := make(chan interface{}, 64)
		if err := tryRegister(trace, ch); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer tryUnregister(trace, ch)

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			s.Log.Debug("trace upgrade failed", "remote", req.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()
		s.Log.Debug("trace client connected", "remote", req.RemoteAddr)

		// clients never send data, reading only processes control frames
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case m := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(m); err != nil {
					s.Log.Debug("trace write failed", "remote", req.RemoteAddr, "error", err)
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			case <-s.Context.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "node stopped"),
					time.Now().Add(writeWait))
				return
			}
		}
	})
}

// WatchTrace connects to the trace endpoint of a node and calls fn for every report until the
// node goes away or fn returns an error.
func WatchTrace(addr string, fn func(report RoundReport) error) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: TracePath}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var report RoundReport
		err := conn.ReadJSON(&report)
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		if err := fn(report); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
	}
}

// ErrStopWatching can be returned from a WatchTrace callback to disconnect cleanly
var ErrStopWatching = errors.New("stop watching")
