package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"zeptrion-bridge/internal/domain/model"

	"github.com/mark3labs/mcp-go/mcp"
)

type HubInfoOutput struct {
	Hub  model.HubIdentity `json:"hub"`
	DBm  *int              `json:"dbm,omitempty"`
	Note string            `json:"note,omitempty"`
}

type ChannelInfo struct {
	model.Channel
	Label string                `json:"label"`
	State *model.MotionSnapshot `json:"state,omitempty"`
}

type ListChannelsOutput struct {
	Channels []ChannelInfo `json:"channels"`
	Count    int           `json:"count"`
}

func (s *Server) handleHubInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ident, err := s.coordinator.Identity()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("hub unavailable: %s", err)), nil
	}

	out := HubInfoOutput{Hub: ident}
	if dbm, err := s.coordinator.SignalStrength(ctx); err == nil {
		out.DBm = &dbm
	} else {
		out.Note = fmt.Sprintf("signal strength unavailable: %s", err)
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListChannels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channels := s.coordinator.Channels()
	infos := make([]ChannelInfo, 0, len(channels))
	for _, ch := range channels {
		info := ChannelInfo{Channel: ch, Label: ch.Label()}
		if snap, err := s.coordinator.StatusOf(ch.ID); err == nil {
			info.State = &snap
		}
		infos = append(infos, info)
	}
	return mcp.NewToolResultText(formatJSON(ListChannelsOutput{Channels: infos, Count: len(infos)})), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredInt(request, "channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.coordinator.StatusOf(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get status: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(snap)), nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredInt(request, "channel")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := requiredString(request, "command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, ok := model.ParseCommandKind(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown command %q", name)), nil
	}

	cmd := model.Command{Kind: kind}
	if v, ok := request.GetArguments()["arg"].(float64); ok {
		cmd.Arg = int(v)
	} else if kind == model.CommandStepUp || kind == model.CommandStepDown {
		cmd.Arg = int(s.coordinator.StepDuration() / time.Millisecond)
	}

	ack, err := s.coordinator.Dispatch(ctx, id, cmd)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("command rejected: %s", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(ack)), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func requiredInt(request mcp.CallToolRequest, key string) (int, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required parameter %q is missing", key)
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
	return int(f), nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
