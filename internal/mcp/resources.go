package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/wodocr/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// blockTypeKeywords mirrors the parser's header precedence for clients.
var blockTypeKeywords = []struct {
	Type     models.BlockType `json:"block_type"`
	Keywords []string         `json:"keywords"`
}{
	{models.BlockAMRAP, []string{"AMRAP"}},
	{models.BlockEMOM, []string{"EMOM"}},
	{models.BlockForTime, []string{"FOR TIME"}},
	{models.BlockIntervals, []string{"<n> on <m> off"}},
	{models.BlockRounds, []string{"ROUND", "ROUNDS"}},
	{models.BlockUnknown, nil},
}

func (h *handlers) movementCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(h.catalog.Snapshot())
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) blockTypes(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(blockTypeKeywords)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
