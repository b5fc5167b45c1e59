package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stonelantern/questhall/internal/logger"
	"github.com/stonelantern/questhall/internal/quest"
)

// request is the wire shape of every inbound message.
type request struct {
	Type string `json:"type"`

	// Auth
	Key string `json:"key,omitempty"`

	// Events
	Target   string `json:"target,omitempty"`
	Name     string `json:"name,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	Count    int    `json:"count,omitempty"`
	SceneID  string `json:"scene_id,omitempty"`
	RegionID string `json:"region_id,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`

	// Operations
	QuestID      string          `json:"quest_id,omitempty"`
	ObjectiveID  string          `json:"objective_id,omitempty"`
	Participants []string        `json:"participants,omitempty"`
	BranchID     string          `json:"branch_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Current      int             `json:"current,omitempty"`
	Quest        json.RawMessage `json:"quest,omitempty"`
}

// response answers one request.
type response struct {
	Type    string         `json:"type"`
	OK      bool           `json:"ok"`
	Code    string         `json:"code,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Quest   *quest.Quest   `json:"quest,omitempty"`
	Quests  []*quest.Quest `json:"quests,omitempty"`
	Summary *quest.Summary `json:"summary,omitempty"`
	Reset   []string       `json:"reset,omitempty"`
}

// eventFrame is a server-push engine event.
type eventFrame struct {
	Type  string      `json:"type"`
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// session is one authenticated gateway connection.
type session struct {
	server *Server
	conn   *websocket.Conn
	wmu    sync.Mutex
}

func newSession(server *Server, conn *websocket.Conn) *session {
	return &session{server: server, conn: conn}
}

// send writes a frame; write errors just end the session on the next read.
func (sess *session) send(v interface{}) {
	sess.wmu.Lock()
	defer sess.wmu.Unlock()
	if err := sess.conn.WriteJSON(v); err != nil {
		logger.Debug("Session write failed", "error", err)
	}
}

// authenticate consumes the first frame and verifies the shared key.
func (sess *session) authenticate() bool {
	if sess.server.cfg.Auth.KeyHash == "" {
		return true // Auth disabled
	}

	var req request
	if err := sess.conn.ReadJSON(&req); err != nil {
		return false
	}
	if req.Type != "auth" || !VerifyKey(sess.server.cfg.Auth.KeyHash, req.Key) {
		sess.send(response{Type: "auth", OK: false, Code: "unauthorized", Reason: "invalid gateway key"})
		logger.Warning("Session rejected, bad gateway key", "remote_addr", sess.conn.RemoteAddr().String())
		return false
	}
	sess.send(response{Type: "auth", OK: true})
	return true
}

// readLoop processes frames until the connection drops.
func (sess *session) readLoop() {
	for {
		var req request
		if err := sess.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Session closed unexpectedly", "error", err)
			}
			return
		}
		sess.dispatch(context.Background(), req)
	}
}

func (sess *session) dispatch(ctx context.Context, req request) {
	srv := sess.server
	switch req.Type {
	case "kill":
		sess.reply(req, nil, nil, srv.tracker.OnKill(ctx, req.Target, req.Name))
	case "item_count":
		sess.reply(req, nil, nil, srv.tracker.OnItemCountChanged(ctx, req.ItemID, req.Count))
	case "location":
		sess.reply(req, nil, nil, srv.tracker.OnLocationEnter(ctx, req.SceneID, req.RegionID))
	case "manual_objective":
		q, err := srv.tracker.OnManualComplete(ctx, req.QuestID, req.ObjectiveID)
		sess.reply(req, q, nil, err)
	case "giver_death":
		sess.reply(req, nil, nil, srv.engine.OnGiverDeath(ctx, req.ActorID))
	case "accept":
		q, err := srv.engine.Accept(ctx, req.QuestID, req.Participants)
		sess.reply(req, q, nil, err)
	case "complete":
		q, summary, err := srv.engine.Complete(ctx, req.QuestID, req.Participants, req.BranchID)
		sess.reply(req, q, summary, err)
	case "fail":
		q, err := srv.engine.Fail(ctx, req.QuestID, req.Reason)
		sess.reply(req, q, nil, err)
	case "abandon":
		q, err := srv.engine.Abandon(ctx, req.QuestID, req.ActorID)
		sess.reply(req, q, nil, err)
	case "reset":
		q, err := srv.engine.Reset(ctx, req.QuestID)
		sess.reply(req, q, nil, err)
	case "update_objective":
		q, err := srv.tracker.UpdateObjective(ctx, req.QuestID, req.ObjectiveID, req.Current)
		sess.reply(req, q, nil, err)
	case "complete_objective":
		q, err := srv.tracker.CompleteObjective(ctx, req.QuestID, req.ObjectiveID)
		sess.reply(req, q, nil, err)
	case "create_quest":
		var q quest.Quest
		if err := json.Unmarshal(req.Quest, &q); err != nil {
			sess.send(response{Type: req.Type, OK: false, Code: "bad_request", Reason: "malformed quest payload"})
			return
		}
		created, err := srv.engine.CreateQuest(ctx, &q)
		sess.reply(req, created, nil, err)
	case "update_quest":
		var q quest.Quest
		if err := json.Unmarshal(req.Quest, &q); err != nil {
			sess.send(response{Type: req.Type, OK: false, Code: "bad_request", Reason: "malformed quest payload"})
			return
		}
		updated, err := srv.engine.UpdateQuest(ctx, &q)
		sess.reply(req, updated, nil, err)
	case "delete_quest":
		sess.reply(req, nil, nil, srv.engine.DeleteQuest(ctx, req.QuestID))
	case "get_quest":
		if q, ok := srv.engine.Store().Get(req.QuestID); ok {
			sess.send(response{Type: req.Type, OK: true, Quest: q})
		} else {
			sess.send(response{Type: req.Type, OK: false, Code: string(quest.FailNotFound), Reason: "quest " + req.QuestID})
		}
	case "list_quests":
		sess.send(response{Type: req.Type, OK: true, Quests: srv.engine.Store().All()})
	case "check_repeatables":
		reset, err := srv.scheduler.CheckRepeatableQuests(ctx)
		if err != nil {
			sess.replyError(req, err)
			return
		}
		sess.send(response{Type: req.Type, OK: true, Reset: reset})
	default:
		sess.send(response{Type: req.Type, OK: false, Code: "bad_request", Reason: "unknown message type"})
	}
}

func (sess *session) reply(req request, q *quest.Quest, summary *quest.Summary, err error) {
	if err != nil {
		sess.replyError(req, err)
		return
	}
	sess.send(response{Type: req.Type, OK: true, Quest: q, Summary: summary})
}

// replyError maps engine failures onto the wire contract: expected
// business-rule failures become {ok:false, code, reason}, anything else
// is an internal error.
func (sess *session) replyError(req request, err error) {
	if failure, ok := quest.AsFailure(err); ok {
		sess.send(response{Type: req.Type, OK: false, Code: string(failure.Code), Reason: failure.Reason})
		return
	}
	logger.Error("Operation failed", "type", req.Type, "error", err)
	sess.send(response{Type: req.Type, OK: false, Code: "internal", Reason: "internal error"})
}
