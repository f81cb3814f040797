package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/domain"
)

const feedCloseWait = time.Second

// Feed is a live change-feed connection that fans events out to syncs by table.
// Missed events are not replayed; a full Load recovers them.
type Feed struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu    sync.RWMutex
	syncs map[string][]Sync

	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
	err       error
}

// DialFeed connects to the change feed at url and starts dispatching to syncs
func DialFeed(ctx context.Context, url string, log *zap.Logger, syncs ...Sync) (*Feed, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode >= http.StatusBadRequest {
				return nil, &APIError{Status: resp.StatusCode, Message: "change feed rejected"}
			}
		}
		return nil, fmt.Errorf("failed to dial change feed: %w", err)
	}

	f := &Feed{
		conn:    conn,
		log:     log,
		syncs:   make(map[string][]Sync),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	for _, s := range syncs {
		f.Register(s)
	}
	go f.readLoop()
	return f, nil
}

// Register adds s to the receivers of its table
func (f *Feed) Register(s Sync) {
	f.mu.Lock()
	f.syncs[s.Table()] = append(f.syncs[s.Table()], s)
	f.mu.Unlock()
}

// Unregister removes s from the receivers of its table
func (f *Feed) Unregister(s Sync) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.syncs[s.Table()]
	for i := range list {
		if list[i] == s {
			f.syncs[s.Table()] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Done is closed once the reader stops
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Err returns why the reader stopped, nil after a local Close
func (f *Feed) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Close stops the feed; it is safe to call more than once
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closing)
		deadline := time.Now().Add(feedCloseWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := f.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			f.log.Debug("close frame not sent", zap.Error(err))
		}
		select {
		case <-f.done:
		case <-time.After(feedCloseWait):
		}
		f.conn.Close()
	})
	<-f.done
	return nil
}

func (f *Feed) readLoop() {
	defer close(f.done)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			select {
			case <-f.closing:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					f.err = err
					f.log.Warn("change feed disconnected", zap.Error(err))
				}
				f.conn.Close()
			}
			return
		}

		var change domain.Change
		if err := json.Unmarshal(data, &change); err != nil {
			f.log.Warn("undecodable change event", zap.Error(err))
			continue
		}
		f.dispatch(&change)
	}
}

func (f *Feed) dispatch(change *domain.Change) {
	f.mu.RLock()
	targets := append([]Sync(nil), f.syncs[change.Table]...)
	f.mu.RUnlock()

	for _, s := range targets {
		if err := s.Apply(change); err != nil {
			f.log.Warn("failed to apply change",
				zap.String("table", change.Table),
				zap.String("type", string(change.Type)),
				zap.Error(err))
		}
	}
}
