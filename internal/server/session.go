package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/scroller"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Message types on /ws.
const (
	MsgMeasure = "measure"
	MsgScroll  = "scroll"
	MsgScene   = "scene"
	MsgState   = "state"
	MsgReload  = "reload"
	MsgError   = "error"
)

const writeWait = 10 * time.Second

// ClientMessage is what the browser sends. Steps is only set on measure
// and maps step keys to their document offsets.
type ClientMessage struct {
	Type     string             `json:"type"`
	Steps    map[string]float64 `json:"steps,omitempty"`
	Y        float64            `json:"y"`
	Viewport float64            `json:"viewport"`
}

// SceneMessage carries the redrawn SVG of one visualization.
type SceneMessage struct {
	Type string `json:"type"`
	Viz  string `json:"viz"`
	Step int    `json:"step"`
	Key  string `json:"key"`
	SVG  string `json:"svg"`
}

// StateMessage reports the active step. Step is -1 and Key empty above
// the first step.
type StateMessage struct {
	Type string `json:"type"`
	Step int    `json:"step"`
	Key  string `json:"key"`
}

// NoticeMessage is a reload or error notification.
type NoticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type sessionConfig struct {
	trigger  float64
	mode     scroller.Mode
	debounce time.Duration
	maxRate  float64
	minify   bool
}

// Session is one reader's connection: its own scroller and scenes over the
// shared visualization set.
type Session struct {
	ID string

	conn    *websocket.Conn
	cfg     sessionConfig
	log     zerolog.Logger
	metrics *Metrics

	scroller *scroller.Scroller
	lists    [][]scroller.Entry
	globals  map[string]int

	writeMu sync.Mutex
	closed  atomic.Bool

	posMu     sync.Mutex
	latest    float64
	dirty     bool
	trailing  *time.Timer
	limiter   *rate.Limiter
	debounced func(func())
}

func newSession(conn *websocket.Conn, set *viz.Set, cfg sessionConfig, m *Metrics, log zerolog.Logger) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		conn:    conn,
		cfg:     cfg,
		metrics: m,
		globals: make(map[string]int),
		limiter: rate.NewLimiter(rate.Limit(cfg.maxRate), 1),
	}
	s.log = log.With().Str("session", s.ID).Logger()
	if cfg.debounce > 0 {
		s.debounced = debounce.New(cfg.debounce)
	}
	for _, st := range set.Steps() {
		s.globals[st.Key] = st.Global
	}
	s.scroller = scroller.New(scroller.Options{
		Mode:         cfg.mode,
		OnTransition: s.onTransition,
		OnError:      s.onError,
		Logger:       &s.log,
	})
	s.lists = set.Bind(set.NewScenes(), s.sendScene)
	return s
}

// run reads messages until the connection closes.
func (s *Session) run() {
	defer s.close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("connection lost")
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug().Err(err).Msg("ignoring malformed message")
			continue
		}
		s.handle(msg)
	}
}

func (s *Session) handle(msg ClientMessage) {
	switch msg.Type {
	case MsgMeasure:
		pos := s.position(msg)
		s.supersede(pos)
		loc := scroller.Offsets(msg.Steps)
		if !s.scroller.State().Initialized {
			s.scroller.Initialize(s.lists, loc, pos)
			s.log.Debug().Int("measured", len(msg.Steps)).Int("reachable", len(s.scroller.Boundaries())).Msg("scroller initialized")
			return
		}
		s.scroller.Reset(loc, pos)
	case MsgScroll:
		s.schedule(s.position(msg))
	default:
		s.log.Debug().Str("type", msg.Type).Msg("ignoring unknown message type")
	}
}

// position is the reading line: the scroll offset plus the trigger fraction
// of the viewport.
func (s *Session) position(msg ClientMessage) float64 {
	return msg.Y + s.cfg.trigger*msg.Viewport
}

// schedule records pos as the latest position and evaluates it now, after
// the debounce interval or when the rate limit allows. The most recent
// position is always evaluated eventually.
func (s *Session) schedule(pos float64) {
	s.posMu.Lock()
	if s.dirty {
		s.metrics.ScrollDropped.Inc()
	}
	s.latest = pos
	s.dirty = true
	s.posMu.Unlock()

	if s.debounced != nil {
		s.debounced(s.flush)
		return
	}
	if s.limiter.Allow() {
		s.flush()
		return
	}

	s.posMu.Lock()
	defer s.posMu.Unlock()
	if s.trailing == nil {
		s.trailing = time.AfterFunc(s.interval(), func() {
			s.posMu.Lock()
			s.trailing = nil
			s.posMu.Unlock()
			s.flush()
		})
	}
}

// supersede makes pos the latest position and drops any scroll report still
// waiting for the debounce or the rate limit, so a pending flush cannot
// evaluate an older position afterwards.
func (s *Session) supersede(pos float64) {
	s.posMu.Lock()
	defer s.posMu.Unlock()
	if s.dirty {
		s.metrics.ScrollDropped.Inc()
	}
	s.latest = pos
	s.dirty = false
	if s.trailing != nil {
		s.trailing.Stop()
		s.trailing = nil
	}
}

func (s *Session) interval() time.Duration {
	return time.Duration(float64(time.Second) / s.cfg.maxRate)
}

func (s *Session) flush() {
	if s.closed.Load() {
		return
	}
	s.posMu.Lock()
	if !s.dirty {
		s.posMu.Unlock()
		return
	}
	pos := s.latest
	s.dirty = false
	s.posMu.Unlock()

	s.scroller.Update(pos)
}

func (s *Session) sendScene(info viz.StepInfo, sc *scene.Scene) {
	svg := sc.Render()
	if s.cfg.minify {
		if small, err := sc.RenderMinified(); err == nil {
			svg = small
		} else {
			s.log.Debug().Err(err).Str("viz", info.Viz).Msg("minify failed, sending raw scene")
		}
	}
	s.send(SceneMessage{Type: MsgScene, Viz: info.Viz, Step: info.Global, Key: info.Key, SVG: svg})
}

func (s *Session) onTransition(t scroller.Transition) {
	s.metrics.Transitions.WithLabelValues(t.Direction.String()).Inc()
	step := scroller.Unset
	if t.Key != "" {
		step = s.globals[t.Key]
	}
	s.send(StateMessage{Type: MsgState, Step: step, Key: t.Key})
}

func (s *Session) onError(b scroller.Boundary, err error) {
	vizID, _, perr := viz.ParseKey(b.Key)
	if perr != nil {
		vizID = b.Key
	}
	s.metrics.CallbackErrors.WithLabelValues(vizID).Inc()
	s.send(NoticeMessage{Type: MsgError, Message: fmt.Sprintf("step %s failed", b.Key)})
}

// send writes one JSON message. Writes are serialized.
func (s *Session) send(v interface{}) {
	if s.closed.Load() {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		s.log.Debug().Err(err).Msg("write failed")
	}
}

func (s *Session) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.posMu.Lock()
	if s.trailing != nil {
		s.trailing.Stop()
		s.trailing = nil
	}
	s.posMu.Unlock()
	s.conn.Close()
}
