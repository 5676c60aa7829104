package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"SingularityDashboard/internal/scenario"
	"SingularityDashboard/internal/techtree"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size; custom scenarios arrive inline.
	maxMessageSize = 1 << 20
)

type frameFormat int

const (
	frameJSON frameFormat = iota
	frameProto
)

// liveSession is one websocket connection driving one engine session.
type liveSession struct {
	id            string
	conn          *websocket.Conn
	format        frameFormat
	historyWindow int
	session       *techtree.Session
	logger        *log.Logger
	metrics       *Collector

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (ls *liveSession) send(v any) error {
	var (
		msgType int
		data    []byte
		err     error
	)
	if ls.format == frameProto {
		msgType = websocket.BinaryMessage
		data, err = encodeProto(v)
	} else {
		msgType = websocket.TextMessage
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	_ = ls.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ls.conn.WriteMessage(msgType, data); err != nil {
		ls.metrics.WSErrors.Add(1)
		return err
	}
	ls.metrics.RecordMessage(false)
	return nil
}

func (ls *liveSession) ping() error {
	ls.writeMu.Lock()
	defer ls.writeMu.Unlock()
	return ls.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (ls *liveSession) pushState() error {
	return ls.send(buildStateMsg(ls.id, ls.session.State(), ls.historyWindow))
}

func (ls *liveSession) reject(code string, err error) {
	ls.metrics.Rejected.Add(1)
	ls.logger.Warn("Rejected message", "code", code, "err", err)
	msg := newErrorMsg(code, err.Error())
	var verr *scenario.ValidationError
	if errors.As(err, &verr) {
		msg.Diagnostics = verr.Diagnostics
	}
	if sendErr := ls.send(msg); sendErr != nil {
		ls.logger.Debug("Error frame not delivered", "err", sendErr)
	}
}

func (ls *liveSession) close() {
	ls.closeOnce.Do(func() { _ = ls.conn.Close() })
}

func (a *App) checkOrigin(r *http.Request) bool {
	if len(a.cfg.AllowedOrigins) == 0 || slices.Contains(a.cfg.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(a.cfg.AllowedOrigins, origin)
}

func (a *App) serveWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	scenarioID := query.Get("scenario")
	if scenarioID == "" {
		scenarioID = a.cfg.DefaultScenario
	}
	sc, err := a.catalog.Get(scenarioID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	ff := frameJSON
	if strings.EqualFold(query.Get("format"), "proto") {
		ff = frameProto
	}

	upgrader := websocket.Upgrader{CheckOrigin: a.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}

	id := newSessionID()
	logger := a.logger.With("session", id[:8])
	ls := &liveSession{
		id:            id,
		conn:          conn,
		format:        ff,
		historyWindow: parseIntQuery(query.Get("history"), a.cfg.HistoryWindow),
		logger:        logger,
		metrics:       a.metrics,
	}
	ls.session = techtree.NewSession(sessionHooks{logger: logger, metrics: a.metrics})

	a.hub.add(ls)
	a.metrics.RecordSession(1)
	logger.Info("Session opened", "remote", r.RemoteAddr, "scenario", sc.ID)
	defer func() {
		ls.close()
		a.hub.remove(id)
		a.metrics.RecordSession(-1)
		logger.Info("Session closed")
	}()

	ls.session.Dispatch(techtree.LoadScenario{Scenario: sc})
	if err := ls.pushState(); err != nil {
		logger.Debug("Initial state not delivered", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		a.readLoop(ls)
	}()

	tick := time.NewTicker(a.cfg.TickInterval)
	defer tick.Stop()
	push := time.NewTicker(a.cfg.PushInterval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			// Accrue the measured delta so a delayed tick loses nothing.
			delta := now.Sub(last)
			last = now
			start := time.Now()
			ls.session.Dispatch(techtree.Tick{DeltaMs: float64(delta) / float64(time.Millisecond)})
			a.metrics.RecordTick(time.Since(start))
		case <-push.C:
			if err := ls.pushState(); err != nil {
				logger.Debug("Send error", "err", err)
				return
			}
		case <-ping.C:
			if err := ls.ping(); err != nil {
				logger.Debug("Ping error", "err", err)
				return
			}
		}
	}
}

func (a *App) readLoop(ls *liveSession) {
	ls.conn.SetReadLimit(maxMessageSize)
	_ = ls.conn.SetReadDeadline(time.Now().Add(pongWait))
	ls.conn.SetPongHandler(func(string) error {
		return ls.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := ls.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				ls.logger.Warn("Read error", "err", err)
			}
			return
		}
		ls.metrics.RecordMessage(true)

		switch msgType {
		case websocket.BinaryMessage:
			// Binary frames carry the same envelope as a protobuf Struct.
			m, err := decodeProtoFrame(data)
			if err != nil {
				ls.reject("bad_message", err)
				continue
			}
			if data, err = json.Marshal(m); err != nil {
				ls.reject("bad_message", err)
				continue
			}
			a.handleMessage(ls, data)
		case websocket.TextMessage:
			a.handleMessage(ls, data)
		}
	}
}

func (a *App) handleMessage(ls *liveSession, data []byte) {
	var inbound inboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		ls.reject("bad_message", fmt.Errorf("invalid JSON message: %w", err))
		return
	}

	switch inbound.Type {
	case "unlock":
		var p unlockPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			ls.reject("bad_payload", fmt.Errorf("invalid unlock payload: %w", err))
			return
		}
		next := ls.session.Dispatch(techtree.UnlockTech{ID: techtree.TechID(p.ID)})
		if !next.IsUnlocked(techtree.TechID(p.ID)) {
			ls.logger.Debug("Unlock not applied", "tech", p.ID, "status", techtree.Status(next, techtree.TechID(p.ID)))
		}
	case "reset":
		ls.session.Dispatch(techtree.Reset{})
	case "load_scenario":
		var p loadScenarioPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			ls.reject("bad_payload", fmt.Errorf("invalid load_scenario payload: %w", err))
			return
		}
		sc, err := a.catalog.Get(p.ID)
		if err != nil {
			ls.reject(errorCode(err), err)
			return
		}
		ls.session.Dispatch(techtree.LoadScenario{Scenario: sc})
	case "load_custom":
		var p loadCustomPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			ls.reject("bad_payload", fmt.Errorf("invalid load_custom payload: %w", err))
			return
		}
		sc, err := a.loadCustom(p)
		if err != nil {
			ls.reject(errorCode(err), err)
			return
		}
		ls.session.Dispatch(techtree.LoadScenario{Scenario: sc})
	default:
		ls.reject("unknown_type", fmt.Errorf("unknown message type %q", inbound.Type))
		return
	}

	if err := ls.pushState(); err != nil {
		ls.logger.Debug("Send error", "err", err)
	}
}

// loadCustom validates an inline scenario document.
func (a *App) loadCustom(p loadCustomPayload) (*techtree.Scenario, error) {
	if len(p.Scenario) == 0 || string(p.Scenario) == "null" {
		return nil, fmt.Errorf("%w: missing scenario", scenario.ErrMalformedScenario)
	}
	if p.Format == "" {
		return a.validator.Load("custom", p.Scenario, scenario.FormatJSON)
	}

	f, err := scenario.ParseFormat(p.Format)
	if err != nil {
		return nil, err
	}
	if f == scenario.FormatProto {
		return nil, fmt.Errorf("%w: send binary Struct frames instead", scenario.ErrUnsupportedFormat)
	}
	var text string
	if err := json.Unmarshal(p.Scenario, &text); err != nil {
		return nil, fmt.Errorf("%w: scenario must be a string when format is set", scenario.ErrMalformedScenario)
	}
	return a.validator.Load("custom", []byte(text), f)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, scenario.ErrInvalidScenario):
		return "invalid_scenario"
	case errors.Is(err, scenario.ErrMalformedScenario):
		return "malformed_scenario"
	case errors.Is(err, scenario.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, scenario.ErrUnknownScenario):
		return "unknown_scenario"
	default:
		return "error"
	}
}
