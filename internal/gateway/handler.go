package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"bossrush/internal/events"
	combatService "bossrush/internal/services/combat"
	partyService "bossrush/internal/services/party"
	"bossrush/internal/uuid"
)

const defaultPingInterval = 30 * time.Second

// Handler accepts websocket connections and dispatches each connection's
// intents to the party and combat services. Errors out of the services mean
// the intent was dropped; they are logged and never surfaced to the peer
// (only the join flow gets an explicit error event, sent by the service).
type Handler struct {
	hub           *Hub
	partyService  partyService.Service
	combatService combatService.Service
	uuidGenerator uuid.Generator
	pingInterval  time.Duration
}

// HandlerConfig holds configuration for the handler
type HandlerConfig struct {
	Hub           *Hub                  // Required
	PartyService  partyService.Service  // Required
	CombatService combatService.Service // Required
	UUIDGenerator uuid.Generator        // Optional
	PingInterval  time.Duration         // Optional, defaults to 30s
}

// NewHandler creates a new gateway handler
func NewHandler(cfg *HandlerConfig) *Handler {
	if cfg.Hub == nil {
		panic("hub is required")
	}
	if cfg.PartyService == nil {
		panic("party service is required")
	}
	if cfg.CombatService == nil {
		panic("combat service is required")
	}

	h := &Handler{
		hub:           cfg.Hub,
		partyService:  cfg.PartyService,
		combatService: cfg.CombatService,
		pingInterval:  cfg.PingInterval,
	}
	if cfg.UUIDGenerator != nil {
		h.uuidGenerator = cfg.UUIDGenerator
	} else {
		h.uuidGenerator = uuid.NewGoogleUUIDGenerator()
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	return h
}

// ServeHTTP upgrades the request and runs the connection until the peer
// goes away
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // rendering clients connect from arbitrary origins
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "websocket accept failed", "error", err)
		return
	}

	conn := NewConnection(h.uuidGenerator.New(), NewWebsocketTransport(wsConn))
	h.Serve(r.Context(), conn)
}

// Serve runs a connection's read/write/ping loops, then tears its party
// membership down. Exported so tests can drive a fake transport through the
// full dispatch path.
func (h *Handler) Serve(ctx context.Context, conn *Connection) {
	h.hub.Register(conn)
	defer h.disconnect(ctx, conn)

	slog.DebugContext(ctx, "connection accepted", "connection_id", conn.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		conn.WriteLoop(ctx)
		cancel()
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		return conn.PingLoop(ctx, h.pingInterval)
	})
	eg.Go(func() error {
		defer cancel()
		return h.readLoop(ctx, conn)
	})

	if err := eg.Wait(); err != nil {
		slog.DebugContext(ctx, "connection closed", "connection_id", conn.ID, "error", err)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *Connection) error {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		h.dispatch(ctx, conn, data)
	}
}

// disconnect is the single exit path for a connection: leave the broadcast
// group first so departure events reach only the remaining members, then
// run the membership leave (which handles migration and disband).
func (h *Handler) disconnect(ctx context.Context, conn *Connection) {
	code := conn.PartyCode()
	h.hub.Unregister(conn.ID)
	conn.Close(int(websocket.StatusNormalClosure), "")

	if code == "" {
		return
	}
	if err := h.partyService.Leave(context.WithoutCancel(ctx), code, conn.ID); err != nil {
		slog.DebugContext(ctx, "leave on disconnect dropped",
			"connection_id", conn.ID, "party_code", code, "error", err)
	}
}

// dispatch routes one inbound frame. Malformed, unknown, or stale intents
// degrade to no-ops for that single frame.
func (h *Handler) dispatch(ctx context.Context, conn *Connection, data []byte) {
	env, err := decodeEnvelope(data)
	if err != nil {
		slog.DebugContext(ctx, "malformed frame dropped", "connection_id", conn.ID, "error", err)
		return
	}

	switch env.Type {
	case intentHostParty:
		h.handleHostParty(ctx, conn)
	case intentJoinParty:
		h.handleJoinParty(ctx, conn, env.Data)
	case intentStartGame:
		h.handleStartGame(ctx, conn, env.Data)
	case intentPlayerMove:
		h.handlePlayerMove(ctx, conn, env.Data)
	case intentPlayerAttack:
		h.handlePlayerAttack(ctx, conn, env.Data)
	case intentPlayerDamaged:
		h.handlePlayerDamaged(ctx, conn, env.Data)
	case intentCollectLoot:
		h.handleCollectLoot(ctx, conn, env.Data)
	default:
		slog.DebugContext(ctx, "unknown intent dropped", "type", env.Type, "connection_id", conn.ID)
	}
}

func (h *Handler) handleHostParty(ctx context.Context, conn *Connection) {
	if conn.PartyCode() != "" {
		slog.DebugContext(ctx, "host intent from connection already in a party", "connection_id", conn.ID)
		return
	}

	party, err := h.partyService.Host(ctx, conn.ID)
	if err != nil {
		slog.WarnContext(ctx, "host party failed", "connection_id", conn.ID, "error", err)
		return
	}
	// Group membership is the service's job; the connection only remembers
	// which party its own intents target.
	conn.SetPartyCode(party.Code)
}

func (h *Handler) handleJoinParty(ctx context.Context, conn *Connection, data []byte) {
	var intent joinPartyIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed join intent dropped", "connection_id", conn.ID, "error", err)
		return
	}
	if conn.PartyCode() != "" {
		return
	}

	party, err := h.partyService.Join(ctx, intent.Code, conn.ID)
	if err != nil {
		// The joiner already received a join-error event from the service.
		slog.DebugContext(ctx, "join rejected", "connection_id", conn.ID, "error", err)
		return
	}
	conn.SetPartyCode(party.Code)
}

func (h *Handler) handleStartGame(ctx context.Context, conn *Connection, data []byte) {
	var intent startGameIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed start intent dropped", "connection_id", conn.ID, "error", err)
		return
	}

	if err := h.partyService.Start(ctx, intent.Code, conn.ID); err != nil {
		slog.DebugContext(ctx, "start dropped", "connection_id", conn.ID, "error", err)
	}
}

func (h *Handler) handlePlayerMove(ctx context.Context, conn *Connection, data []byte) {
	code := conn.PartyCode()
	if code == "" {
		return
	}

	var intent playerMoveIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed move intent dropped", "connection_id", conn.ID, "error", err)
		return
	}

	// Pure relay, no validation: the other members render it, the server
	// does not care where anyone stands.
	h.hub.BroadcastExcept(code, conn.ID, events.PlayerMoved{
		PlayerID: conn.ID,
		Position: intent.Position,
		Rotation: intent.Rotation,
		Action:   intent.Action,
	})
}

func (h *Handler) handlePlayerAttack(ctx context.Context, conn *Connection, data []byte) {
	code := conn.PartyCode()
	if code == "" {
		return
	}

	var intent playerAttackIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed attack intent dropped", "connection_id", conn.ID, "error", err)
		return
	}

	err := h.combatService.Attack(ctx, code, conn.ID, &combatService.AttackInput{
		TargetID:   intent.TargetID,
		TargetKind: combatService.TargetKind(intent.TargetKind),
		Damage:     intent.Damage,
		Hit:        intent.Hit,
	})
	if err != nil {
		slog.DebugContext(ctx, "attack dropped", "connection_id", conn.ID, "error", err)
	}
}

func (h *Handler) handlePlayerDamaged(ctx context.Context, conn *Connection, data []byte) {
	code := conn.PartyCode()
	if code == "" {
		return
	}

	var intent playerDamagedIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed damage intent dropped", "connection_id", conn.ID, "error", err)
		return
	}

	if err := h.combatService.ApplyDamage(ctx, code, conn.ID, intent.Amount); err != nil {
		slog.DebugContext(ctx, "damage intent dropped", "connection_id", conn.ID, "error", err)
	}
}

func (h *Handler) handleCollectLoot(ctx context.Context, conn *Connection, data []byte) {
	code := conn.PartyCode()
	if code == "" {
		return
	}

	var intent collectLootIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		slog.DebugContext(ctx, "malformed loot intent dropped", "connection_id", conn.ID, "error", err)
		return
	}

	if err := h.combatService.CollectLoot(ctx, code, conn.ID, intent.LootID); err != nil {
		slog.DebugContext(ctx, "loot intent dropped", "connection_id", conn.ID, "error", err)
	}
}
