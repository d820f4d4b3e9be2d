package mcp

import (
	"zeptrion-bridge/internal/domain/model"

	"github.com/mark3labs/mcp-go/mcp"
)

func commandNames() []string {
	names := make([]string, 0, 9)
	for k := model.CommandOpen; k <= model.CommandDim; k++ {
		names = append(names, k.String())
	}
	return names
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("hub_info",
			mcp.WithDescription("Show the zeptrion hub identity and its WiFi signal strength"),
		),
		s.handleHubInfo,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_channels",
			mcp.WithDescription("List the hub's channels with their category and tracked state"),
		),
		s.handleListChannels,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_status",
			mcp.WithDescription("Get the tracked motion or power state of one channel"),
			mcp.WithNumber("channel",
				mcp.Required(),
				mcp.Description("Channel number, starting at 1"),
			),
		),
		s.handleGetStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("dispatch_command",
			mcp.WithDescription("Send a command to a channel. Covers accept open, close, stop, step_up, step_down and recall_scene; lights accept on and off; dimmers also accept dim."),
			mcp.WithNumber("channel",
				mcp.Required(),
				mcp.Description("Channel number, starting at 1"),
			),
			mcp.WithString("command",
				mcp.Required(),
				mcp.Enum(commandNames()...),
				mcp.Description("Command name"),
			),
			mcp.WithNumber("arg",
				mcp.Description("Step duration in ms for step_up/step_down, scene number for recall_scene, level 1-100 for dim"),
			),
		),
		s.handleDispatch,
	)
}
