package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolParseWod = mcp.NewTool("parse_wod",
	mcp.WithDescription("Parse raw workout text (OCR output or typed) into blocks, scenarios and movements. With match enabled, each movement is resolved against the movement catalog and unresolved ones are counted in warnings."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Raw workout text, one line per item (e.g. 'AMRAP 20 min\\n10 Wall Balls\\n5 Pull-ups')")),
	mcp.WithBoolean("match", mcp.Description("Resolve movements against the catalog. Defaults to true.")),
)

var toolScanWodImage = mcp.NewTool("scan_wod_image",
	mcp.WithDescription("Run OCR on a whiteboard photo, then parse and match the recognised text. Requires an OCR service to be configured."),
	mcp.WithString("image_base64", mcp.Required(), mcp.Description("Image bytes, standard base64 encoded")),
	mcp.WithString("filename", mcp.Description("Original file name, used for logging and content sniffing by the OCR service")),
)

var toolMatchMovement = mcp.NewTool("match_movement",
	mcp.WithDescription("Resolve one free-text movement name to a catalog movement. Returns the candidate, its confidence, the strategy that found it and whether it clears the threshold."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Movement name as written (e.g. 'pull ups', 'C2B', 'sentadillas')")),
)

var toolListMovements = mcp.NewTool("list_movements",
	mcp.WithDescription("List catalog movements, optionally filtered by a case-insensitive name substring."),
	mcp.WithString("query", mcp.Description("Name substring filter (e.g. 'squat')")),
)

// --- Tool handlers ---

func (h *handlers) parseWod(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	var res *ingest.Result
	if req.GetBool("match", true) {
		res = h.ingest.Process(text)
	} else {
		res = h.ingest.Parse(text)
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) scanWodImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	encoded, err := req.RequireString("image_base64")
	if err != nil {
		return mcp.NewToolResultError("image_base64 parameter is required"), nil
	}
	image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return mcp.NewToolResultError("image_base64 is not valid base64: " + err.Error()), nil
	}

	res, err := h.ingest.ProcessImage(ctx, req.GetString("filename", "wod.jpg"), image)
	if errors.Is(err, ingest.ErrOCRDisabled) {
		return mcp.NewToolResultError("OCR is not configured on this server; send the text to parse_wod instead"), nil
	}
	if err != nil {
		h.log.Error("mcp scan_wod_image", "error", err)
		return mcp.NewToolResultError("scan failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) matchMovement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	res := h.ingest.Resolve(name)
	result, err := mcp.NewToolResultJSON(map[string]any{
		"resolution": res,
		"threshold":  h.ingest.Threshold(),
		"accepted":   res.MovementID != nil && res.Confidence >= h.ingest.Threshold(),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listMovements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movements := filterMovements(h.catalog.Snapshot().Movements, req.GetString("query", ""))

	result, err := mcp.NewToolResultJSON(movements)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func filterMovements(movements []models.Movement, query string) []models.Movement {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return movements
	}
	out := []models.Movement{}
	for _, m := range movements {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}
