// Package admin serves read-only lobby inspection tools over MCP.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harryalloyd/battleship/internal/game"
	"github.com/harryalloyd/battleship/internal/lobby"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Admin exposes read-only lobby inspection as MCP tools.
type Admin struct {
	lobby     *lobby.Matchmaker
	mcpServer *server.MCPServer
}

func New(l *lobby.Matchmaker) *Admin {
	a := &Admin{lobby: l}
	a.mcpServer = server.NewMCPServer(
		"Battleship Admin",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Battleship Admin - read-only view of the live lobby.

AVAILABLE TOOLS:
- lobby_status: who is waiting and how many rooms are active
- list_rooms: one line per active room
- get_room: full state of one room (phase, players, turn, counters)`),
	)
	a.registerTools()
	return a
}

func (a *Admin) registerTools() {
	a.mcpServer.AddTool(mcp.Tool{
		Name:        "lobby_status",
		Description: "Show the waiting connection and the number of active rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, a.handleLobbyStatus)

	a.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List active rooms, oldest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, a.handleListRooms)

	a.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get the state of one room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID as sent in assignRoom",
				},
			},
			Required: []string{"room_id"},
		},
	}, a.handleGetRoom)
}

// Handle processes one JSON-RPC message.
func (a *Admin) Handle(ctx context.Context, body json.RawMessage) mcp.JSONRPCMessage {
	return a.mcpServer.HandleMessage(ctx, body)
}

func (a *Admin) handleLobbyStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	waiting, ok := a.lobby.Waiting()
	if !ok {
		waiting = "(none)"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Waiting: %s\nActive rooms: %d", waiting, a.lobby.Count())), nil
}

func (a *Admin) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rooms := a.lobby.Rooms()
	if len(rooms) == 0 {
		return mcp.NewToolResultText("No active rooms"), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Active rooms (%d):\n", len(rooms))
	for _, r := range rooms {
		s := r.Snapshot()
		fmt.Fprintf(&sb, "- %s [%s] %s vs %s, round %d\n", s.Room, s.Phase, s.Usernames[0], s.Usernames[1], s.Rounds)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (a *Admin) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}
	r, ok := a.lobby.Room(game.RoomID(roomID))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("room %s not found", roomID)), nil
	}
	return mcp.NewToolResultText(formatSnapshot(r.Snapshot())), nil
}

func formatSnapshot(s game.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Room: %s\n", s.Room)
	fmt.Fprintf(&sb, "Phase: %s (round %d)\n", s.Phase, s.Rounds)
	for i, p := range s.Players {
		t := s.Tally[p]
		fmt.Fprintf(&sb, "Player %d: %s (%s) fired %d, shots %d, hits %d, misses %d\n",
			i+1, s.Usernames[i], p, s.Fired[p], t.Shots, t.Hits, t.Misses)
	}
	fmt.Fprintf(&sb, "Turn: %s (shots taken %d)\n", s.Turn, s.ShotsTaken)
	fmt.Fprintf(&sb, "Ready %d/2, done %d/2, rematch %d/2\n", s.ReadyCount, s.DoneCount, s.RematchCount)
	return sb.String()
}
