// Package server exposes perft, move listings and board diagrams over HTTP,
// with a websocket endpoint that streams divide counts as they finish.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slices"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/perft"
	"github.com/hailam/chesscore/internal/render"
)

const (
	DefaultMaxDepth = 6
	defaultPNGSize  = 320
	maxPNGSize      = 2048
)

// Config configures a Server.
type Config struct {
	MaxDepth  int          // deepest perft accepted, 0 means DefaultMaxDepth
	AccessLog io.Writer    // combined access log, nil disables it
	Logger    *slog.Logger // nil means slog.Default()
}

// Server routes HTTP requests to the perft driver and renderer.
type Server struct {
	router   *mux.Router
	driver   *perft.Driver
	maxDepth int
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server running perft on driver.
func New(driver *perft.Driver, cfg Config) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		driver:   driver,
		maxDepth: cfg.MaxDepth,
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("package", "server")

	if cfg.AccessLog != nil {
		accessLog := func(next http.Handler) http.Handler {
			return handlers.LoggingHandler(cfg.AccessLog, next)
		}
		s.router.Use(accessLog)
		s.router.NotFoundHandler = accessLog(http.HandlerFunc(notFoundHandler))
	} else {
		s.router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	}
	s.router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))

	s.router.HandleFunc("/perft", s.perftHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/moves", s.movesHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/board.svg", s.svgHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/board.png", s.pngHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.wsHandler)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// positionParam reads the fen query parameter, defaulting to the start.
func positionParam(r *http.Request) (*board.Position, error) {
	fen := r.URL.Query().Get("fen")
	if fen == "" {
		return board.NewPosition(), nil
	}
	return board.ParseFEN(fen)
}

func (s *Server) checkDepth(depth int) error {
	if depth < 0 {
		return fmt.Errorf("%w: %d", perft.ErrNegativeDepth, depth)
	}
	if depth > s.maxDepth {
		return fmt.Errorf("depth %d exceeds the limit of %d", depth, s.maxDepth)
	}
	return nil
}

func (s *Server) depthParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return 0, errors.New("missing depth")
	}
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid depth %q", raw)
	}
	return depth, s.checkDepth(depth)
}

type divideJSON struct {
	Move  string `json:"move"`
	Nodes uint64 `json:"nodes"`
}

type perftResponse struct {
	FEN       string       `json:"fen"`
	Depth     int          `json:"depth"`
	Nodes     uint64       `json:"nodes"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Cached    bool         `json:"cached"`
	Divide    []divideJSON `json:"divide"`
}

func (s *Server) perftHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	depth, err := s.depthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.driver.Run(r.Context(), pos, depth)
	if err != nil {
		s.logger.Warn("perft failed", "fen", pos.ToFEN(), "depth", depth, "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := perftResponse{
		FEN:       pos.ToFEN(),
		Depth:     depth,
		Nodes:     res.Nodes,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Cached:    res.Cached,
		Divide:    make([]divideJSON, 0, len(res.Divide)),
	}
	for _, e := range res.Divide {
		resp.Divide = append(resp.Divide, divideJSON{Move: e.Move.String(), Nodes: e.Nodes})
	}
	writeJSON(w, http.StatusOK, resp)
}

type moveJSON struct {
	UCI   string   `json:"uci"`
	SAN   string   `json:"san"`
	Flags []string `json:"flags"`
}

type movesResponse struct {
	FEN       string     `json:"fen"`
	InCheck   bool       `json:"in_check"`
	Checkmate bool       `json:"checkmate"`
	Stalemate bool       `json:"stalemate"`
	Moves     []moveJSON `json:"moves"`
}

// movesHandler lists the legal moves sorted by their UCI string.
func (s *Server) movesHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	legal := pos.GenerateLegalMoves().Slice()
	resp := movesResponse{
		FEN:       pos.ToFEN(),
		InCheck:   pos.InCheck(),
		Checkmate: pos.IsCheckmate(),
		Stalemate: pos.IsStalemate(),
		Moves:     make([]moveJSON, 0, len(legal)),
	}
	for _, m := range legal {
		resp.Moves = append(resp.Moves, moveJSON{UCI: m.String(), SAN: m.SAN(pos), Flags: m.FlagNames()})
	}
	slices.SortFunc(resp.Moves, func(a, b moveJSON) int {
		return strings.Compare(a.UCI, b.UCI)
	})
	writeJSON(w, http.StatusOK, resp)
}

// renderOptions reads flip and highlight (comma separated squares).
func renderOptions(r *http.Request) (render.Options, error) {
	q := r.URL.Query()
	opts := render.Options{
		Flipped:     q.Get("flip") == "1" || q.Get("flip") == "true",
		Coordinates: q.Get("coords") != "0",
	}
	if hl := q.Get("highlight"); hl != "" {
		for _, name := range strings.Split(hl, ",") {
			sq, err := board.ParseSquare(name)
			if err != nil {
				return opts, err
			}
			opts.Highlight = append(opts.Highlight, sq)
		}
	}
	return opts, nil
}

func (s *Server) svgHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := renderOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := render.SVG(w, pos, opts); err != nil {
		s.logger.Warn("svg write failed", "error", err)
	}
}

func (s *Server) pngHandler(w http.ResponseWriter, r *http.Request) {
	pos, err := positionParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := renderOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	size := defaultPNGSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 8 || size > maxPNGSize {
			writeError(w, http.StatusBadRequest, fmt.Errorf("size must be between 8 and %d", maxPNGSize))
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.PNG(w, pos, size, opts); err != nil {
		s.logger.Warn("png write failed", "error", err)
	}
}

type wsRequest struct {
	FEN   string `json:"fen"`
	Depth int    `json:"depth"`
}

type wsMessage struct {
	Type      string `json:"type"` // "move", "done" or "error"
	Move      string `json:"move,omitempty"`
	Nodes     uint64 `json:"nodes"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// wsHandler answers each {"fen","depth"} request with one "move" message
// per root move, in completion order, then a "done" message.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.logger.Debug("websocket connected", "remote", conn.RemoteAddr().String())

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		if err := s.streamPerft(r, conn, req); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) streamPerft(r *http.Request, conn *websocket.Conn, req wsRequest) error {
	pos := board.NewPosition()
	if req.FEN != "" {
		p, err := board.ParseFEN(req.FEN)
		if err != nil {
			return conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		}
		pos = p
	}
	if err := s.checkDepth(req.Depth); err != nil {
		return conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
	}

	var writeErr error
	res, err := s.driver.Stream(r.Context(), pos, req.Depth, func(e perft.DivideEntry) {
		if writeErr == nil {
			writeErr = conn.WriteJSON(wsMessage{Type: "move", Move: e.Move.String(), Nodes: e.Nodes})
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		return conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
	}
	return conn.WriteJSON(wsMessage{Type: "done", Nodes: res.Nodes, ElapsedMS: res.Elapsed.Milliseconds()})
}

// Timeouts used by ListenAndServe.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 2 * time.Minute
)

// ListenAndServe serves s on addr.
func ListenAndServe(addr string, s *Server) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return srv.ListenAndServe()
}
