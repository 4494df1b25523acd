package mcp

import (
	"log/slog"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Catalog is the read side of the movement catalog.
type Catalog interface {
	Snapshot() models.CatalogSnapshot
}

// New creates an MCP server with all tools and resources registered.
func New(provider *ingest.Provider, catalog Catalog, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("wodocr", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("WOD OCR server. Turns whiteboard workout text or photos into structured blocks, scenarios and movements, and resolves movement names against the box's movement catalog. Movements below the confidence threshold come back without movement_id and need a human to pick the right one."),
	)

	h := &handlers{ingest: provider, catalog: catalog, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolParseWod, Handler: h.parseWod},
		server.ServerTool{Tool: toolScanWodImage, Handler: h.scanWodImage},
		server.ServerTool{Tool: toolMatchMovement, Handler: h.matchMovement},
		server.ServerTool{Tool: toolListMovements, Handler: h.listMovements},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resMovementCatalog, Handler: h.movementCatalog},
		server.ServerResource{Resource: resBlockTypes, Handler: h.blockTypes},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ingest  *ingest.Provider
	catalog Catalog
	log     *slog.Logger
}

// --- Resource definitions ---

var resMovementCatalog = mcp.NewResource(
	"wodocr://movement_catalog",
	"Movement Catalog",
	mcp.WithResourceDescription("All known movements with id, name and category, plus where and when the catalog was fetched"),
	mcp.WithMIMEType("application/json"),
)

var resBlockTypes = mcp.NewResource(
	"wodocr://block_types",
	"Block Types",
	mcp.WithResourceDescription("Block types the parser recognises and the header keywords that select them, in precedence order"),
	mcp.WithMIMEType("application/json"),
)
