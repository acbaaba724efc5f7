package server

import (
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harryalloyd/battleship/internal/admin"
	"github.com/harryalloyd/battleship/internal/game"
	"github.com/harryalloyd/battleship/internal/hub"
)

// Server wires the router to HTTP: the game socket, static assets, match
// history and admin endpoints.
type Server struct {
	App       *App
	Hub       *hub.Hub
	Admin     *admin.Admin
	StaticDir string
}

func (s *Server) Routes() http.Handler {
	r := gin.Default()
	// simple CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/ws", s.wsHandler)
	r.GET("/rooms", s.roomsHandler)
	r.GET("/matches/recent", s.recentHandler)
	r.GET("/leaderboard", s.leaderboardHandler)
	if s.Admin != nil {
		r.POST("/mcp", s.mcpHandler)
	}
	r.GET("/", func(c *gin.Context) { c.File(filepath.Join(s.StaticDir, "battle.html")) })
	r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.StaticDir))))
	return r
}

// wsHandler owns one connection for its whole life: pairing, events, then
// teardown once the socket fails.
func (s *Server) wsHandler(c *gin.Context) {
	conn, err := s.Hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Println("ws upgrade err:", err)
		return
	}
	log.Printf("conn %s connected", conn.ID)

	s.App.Connect(conn.ID)
	conn.ReadLoop(func(msg hub.Inbound) {
		s.App.Dispatch(conn.ID, msg.Type, msg.Data)
	})

	s.Hub.Unregister(conn.ID)
	s.App.Disconnect(conn.ID)
	log.Printf("conn %s disconnected", conn.ID)
}

func (s *Server) roomsHandler(c *gin.Context) {
	rooms := s.App.Lobby.Rooms()
	out := make([]game.Snapshot, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Snapshot())
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) recentHandler(c *gin.Context) {
	if s.App.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history disabled"})
		return
	}
	limit := 10
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.App.Store.QueryRecentMatches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) leaderboardHandler(c *gin.Context) {
	if s.App.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history disabled"})
		return
	}
	rows, err := s.App.Store.QueryLeaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) mcpHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request"})
		return
	}
	c.JSON(http.StatusOK, s.Admin.Handle(c.Request.Context(), body))
}
