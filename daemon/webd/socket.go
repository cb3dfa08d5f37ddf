package webd

import (
	"encoding/json"
	"time"

	"github.com/olahol/melody"
	"github.com/studio0rpiment/wayside/events"
	"github.com/studio0rpiment/wayside/selector"
)

type websocketAction string

var (
	websocketActionAnchor     websocketAction = "anchor"
	websocketActionDebug      websocketAction = "debug"
	websocketActionPlacements websocketAction = "placements"
)

type broadcast struct {
	Action     websocketAction     `json:"action"`
	Anchor     *events.AnchorEvent `json:"anchor,omitempty"`
	Debug      *bool               `json:"debug,omitempty"`
	User       *selector.Selection `json:"user,omitempty"`
	Placements []placementView     `json:"placements,omitempty"`
	At         time.Time           `json:"at"`
}

// initMelody sets up the websocket handler and the feeds it relays.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	// New clients get the current debug flag.
	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		s.logger.Info("Websocket connected", "remote", sess.Request.RemoteAddr)
		enabled := s.resolver.Debug().Enabled()
		b, _ := json.Marshal(broadcast{Action: websocketActionDebug, Debug: &enabled, At: time.Now()})
		_ = sess.Write(b)
	})

	// Clients don't send us anything meaningful. Log and drop.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", sess.Request.RemoteAddr, "message", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", sess.Request.RemoteAddr, "error", e)
	})

	anchorEvents := make(chan events.AnchorEvent, 16)
	anchorSub := s.subs.Track(s.resolver.Registry().Subscribe(anchorEvents))

	debugEvents := make(chan bool, 1)
	debugSub := s.subs.Track(s.resolver.Debug().Subscribe(debugEvents))

	placements := make(chan placementsReport, 4)
	placementsSub := s.subs.Track(s.feedPlacements.Subscribe(placements))

	go func() {
		for {
			var bc broadcast
			select {
			case ev := <-anchorEvents:
				bc = broadcast{Action: websocketActionAnchor, Anchor: &ev}
			case enabled := <-debugEvents:
				bc = broadcast{Action: websocketActionDebug, Debug: &enabled}
			case rep := <-placements:
				bc = broadcast{Action: websocketActionPlacements, User: &rep.User, Placements: rep.Placements}
			case <-anchorSub.Err():
				return
			case <-debugSub.Err():
				return
			case <-placementsSub.Err():
				return
			}
			bc.At = time.Now()
			b, err := json.Marshal(bc)
			if err != nil {
				s.logger.Error("Failed to marshal broadcast", "action", bc.Action, "error", err)
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				s.logger.Warn("Failed to broadcast", "action", bc.Action, "error", err)
			}
		}
	}()
}
