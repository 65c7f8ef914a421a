package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/siohaza/haxgo/internal/bans"
	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/lockstep"
	"github.com/siohaza/haxgo/internal/masterserver"
	"github.com/siohaza/haxgo/internal/network"
	"github.com/siohaza/haxgo/internal/ping"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/replay"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/script"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/pkg/config"
	"github.com/siohaza/haxgo/pkg/lua"
)

const (
	TickRate = 60

	// HeartbeatInterval is how many frames pass between two heartbeats.
	HeartbeatInterval = 60

	maxEventsPerTick = 100
	hostName         = "host"
)

// transport is a source of connection events, serviced from the room loop.
type transport interface {
	Poll(timeout time.Duration) (network.Event, error)
	Stop()
}

// Server hosts one room. All room state is owned by the run loop; the
// transports hand their events over through Poll.
type Server struct {
	config    *config.Config
	logger    *slog.Logger
	host      *lockstep.Host
	callbacks *callbacks.CallbackChain
	hooks     *roomHooks
	script    *script.Script
	commands  *lua.CommandManager
	bans      *bans.Manager
	localizer *errcode.Localizer

	enet       *network.ENetServer
	ws         *network.WSServer
	httpServer *http.Server
	transports []transport
	ping       *ping.Handler
	master     *masterserver.Client

	sessions map[network.Conn]*session
	players  map[int]*session
	closing  []pendingClose

	recorder    *replay.Recorder
	recordStart bool
	recordStop  bool
	infoDirty   bool

	tickRate  time.Duration
	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	st, err := cfg.LoadStadium()
	if err != nil {
		return nil, err
	}

	localizer, err := errcode.NewLanguages().Localizer(cfg.LanguageTag())
	if err != nil {
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}

	banManager, err := bans.NewManager(cfg.Server.BansFile)
	if err != nil {
		return nil, err
	}
	if err := banManager.Load(); err != nil {
		logger.Warn("failed to load bans", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:    cfg,
		logger:    logger,
		callbacks: callbacks.NewCallbackChain(),
		commands:  lua.NewCommandManager(logger),
		bans:      banManager,
		localizer: localizer,
		sessions:  make(map[network.Conn]*session),
		players:   make(map[int]*session),
		tickRate:  time.Second / TickRate,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	srv.hooks = &roomHooks{s: srv}
	srv.callbacks.Register(srv.hooks)
	srv.host = lockstep.NewHost(srv.newRoom(st), srv.callbacks, srv.relay, logger)

	if err := srv.loadScripts(); err != nil {
		cancel()
		return nil, err
	}

	srv.ws = network.NewWSServer(cfg.Server.WSOrigins, logger)
	srv.transports = append(srv.transports, srv.ws)

	if cfg.Server.PingAddr != "" {
		srv.ping = ping.NewHandler(cfg.Server.PingAddr, srv.roomInfo(), logger)
	}
	if cfg.Room.Public && cfg.Server.MasterAddr != "" && cfg.Server.ENetPort > 0 {
		srv.master = masterserver.New(cfg.Server.MasterAddr, cfg.Server.ENetPort, srv.roomInfo(), logger)
	}

	return srv, nil
}

// newRoom builds the initial room from the configuration. It is the base
// every joining client receives, so settings go in directly rather than as
// operations.
func (s *Server) newRoom(st *stadium.Stadium) *room.State {
	cfg := s.config
	state := room.New(cfg.Room.Name, st)
	state.ScoreLimit = cfg.Game.ScoreLimit
	state.TimeLimit = cfg.Game.TimeLimit
	state.TeamsLocked = cfg.Game.TeamsLock
	state.KickRate = player.KickRate{
		Min:   cfg.Game.KickRate.Min,
		Rate:  cfg.Game.KickRate.Rate,
		Burst: cfg.Game.KickRate.Burst,
	}
	state.TeamColors[team.Red], _ = cfg.Game.Red.Colors(team.Red)
	state.TeamColors[team.Blue], _ = cfg.Game.Blue.Colors(team.Blue)

	if !cfg.Room.NoPlayer {
		host := player.New(player.HostID, hostName, cfg.Room.Flag, "", "", "")
		host.Admin = true
		state.Players.Add(host)
	}
	return state
}

// loadScripts (re)loads the chat commands and the room script.
func (s *Server) loadScripts() error {
	api := lua.NewRoomAPI(s)
	api.SetCommandManager(s.commands)

	if dir := s.config.Scripts.CommandsDir; dir != "" {
		if err := s.commands.Reload(dir, api); err != nil {
			s.logger.Warn("failed to load lua commands", "error", err)
		}
	}

	sc, err := script.Load(s.config.Scripts.Room, s, s.commands, s.logger)
	if err != nil {
		return fmt.Errorf("failed to load room script: %w", err)
	}
	if s.script != nil {
		s.callbacks.Unregister(s.script)
		s.script.Close()
	}
	s.script = sc
	s.callbacks.Register(sc)
	return nil
}

func (s *Server) Start() error {
	if s.config.Server.ENetPort > 0 {
		s.enet = network.NewENetServer(s.config.Server.ENetPort, s.config.Room.MaxPlayers+4, s.logger)
		if err := s.enet.Start(); err != nil {
			return fmt.Errorf("failed to start network: %w", err)
		}
		s.transports = append(s.transports, s.enet)
	}

	if addr := s.config.Server.WSAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/", s.ws)
		s.httpServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("websocket listener failed", "error", err)
			}
		}()
		s.logger.Info("websocket transport started", "address", addr)
	}

	if s.ping != nil {
		if err := s.ping.Start(); err != nil {
			s.logger.Warn("failed to start ping handler", "error", err)
			s.ping = nil
		}
	}
	if s.master != nil {
		s.master.Start()
	}

	s.startTime = time.Now()
	s.logger.Info("room started",
		"name", s.config.Room.Name,
		"stadium", s.host.State().Stadium.Name,
		"max_players", s.config.Room.MaxPlayers,
	)

	go s.run()
	return nil
}

// Stop ends the run loop and waits for it to release the transports.
func (s *Server) Stop() {
	s.logger.Info("stopping room")
	s.cancel()
	if s.startTime.IsZero() {
		return
	}
	<-s.done
	s.logger.Info("room stopped")
}

// Handler serves websocket clients, for embedding the room in another
// HTTP server.
func (s *Server) Handler() http.Handler {
	return s.ws
}

func (s *Server) RegisterCallbacks(cb callbacks.Callbacks) {
	s.callbacks.Register(cb)
}

func (s *Server) run() {
	defer close(s.done)
	defer s.shutdown()

	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.handleNetworkEvents()
			s.tick()
		}
	}
}

func (s *Server) shutdown() {
	if s.recorder != nil {
		s.saveReplay()
	}
	for _, t := range s.transports {
		t.Stop()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("failed to shut down websocket listener", "error", err)
		}
	}
	if s.ping != nil {
		s.ping.Stop()
	}
	if s.master != nil {
		s.master.Stop()
	}
	if s.script != nil {
		s.script.Close()
	}
}

// tick advances the room by one frame and does the bookkeeping that must
// happen between two frames.
func (s *Server) tick() {
	s.host.Tick()
	s.script.Tick()

	s.closePending()

	if s.recordStop {
		s.recordStop = false
		if s.recorder != nil {
			s.saveReplay()
		}
	}
	if s.recordStart {
		s.recordStart = false
		if s.config.Server.ReplayDir != "" && s.host.State().Game != nil {
			s.recorder = replay.NewRecorder(s.host.Frame(), s.host.State())
			s.logger.Debug("replay recording started", "frame", s.host.Frame())
		}
	}

	if s.host.Frame()%HeartbeatInterval == 0 {
		s.broadcast(protocol.EncodeMessage(&protocol.Message{
			Kind:      protocol.MessageHeartbeat,
			Heartbeat: &protocol.Heartbeat{Frame: s.host.Frame()},
		}))
	}

	if s.infoDirty {
		s.infoDirty = false
		info := s.roomInfo()
		if s.ping != nil {
			s.ping.Update(info)
		}
		if s.master != nil {
			s.master.Update(info)
		}
	}
}

func (s *Server) handleNetworkEvents() {
	for _, t := range s.transports {
		for i := 0; i < maxEventsPerTick; i++ {
			event, err := t.Poll(0)
			if err != nil {
				s.logger.Error("network service error", "error", err)
				break
			}
			if event.Type == network.EventTypeNone {
				break
			}

			switch event.Type {
			case network.EventTypeConnect:
				s.handleConnect(event.Conn)
			case network.EventTypeDisconnect:
				s.handleDisconnect(event.Conn)
			case network.EventTypeReceive:
				s.handleMessage(event.Conn, event.Data)
			}
		}
	}
}

// relay is the lockstep sink: every applied operation goes to the joined
// clients and the running recording.
func (s *Server) relay(rec protocol.Record) {
	s.logger.LogAttrs(s.ctx, slog.LevelDebug, "operation applied",
		slog.Uint64("frame", uint64(rec.Frame)),
		slog.Int("sender", rec.SenderID),
		slog.String("op", rec.Op.Type().String()),
	)
	if s.recorder != nil {
		if err := s.recorder.Record(rec); err != nil {
			s.logger.Error("failed to record operation", "error", err)
		}
	}
	s.broadcast(protocol.EncodeMessage(&protocol.Message{
		Kind:   protocol.MessageRecord,
		Record: &rec,
	}))
}

func (s *Server) broadcast(data []byte) {
	for id, sess := range s.players {
		if err := sess.conn.Send(data); err != nil {
			s.logger.Debug("failed to send to player", "id", id, "error", err)
		}
	}
}

func (s *Server) saveReplay() {
	data, err := s.recorder.Stop(s.host.Frame())
	s.recorder = nil
	if err != nil {
		s.logger.Error("failed to finish replay", "error", err)
		return
	}

	dir := s.config.Server.ReplayDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error("failed to create replay directory", "error", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("replay_%d.hbr2", time.Now().Unix()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.logger.Error("failed to write replay", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("failed to save replay", "error", err)
		return
	}
	s.logger.Info("replay saved", "path", path, "bytes", len(data))
}

func (s *Server) roomInfo() ping.RoomInfo {
	state := s.host.State()
	current := state.Players.Len()
	if _, ok := state.Player(player.HostID); ok {
		current--
	}
	return ping.RoomInfo{
		Name:           s.config.Room.Name,
		PlayersCurrent: current,
		PlayersMax:     s.config.Room.MaxPlayers,
		Stadium:        state.Stadium.Name,
		Password:       s.config.Room.Password != "",
		Flag:           s.config.Room.Flag,
		Version:        protocol.Version,
	}
}
