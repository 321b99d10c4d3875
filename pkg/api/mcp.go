package api

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nafeeshossain/allergen-detector/pkg/detect"
	"github.com/nafeeshossain/allergen-detector/pkg/kit"
)

// RegisterMCPTools registers the scanner MCP tools on the server. They
// dispatch to the same endpoints as the HTTP routes.
func RegisterMCPTools(srv *server.MCPServer, svc *Service) {
	registerScanLabel(srv, svc)
	registerLookupBarcode(srv, svc)
	registerListAllergens(srv, svc)
}

func registerScanLabel(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("scan_label",
		mcp.WithDescription("Scan ingredient label text for allergens, with severity tiers (direct mention, may-contain warning, free-from claim) and a weighted health score."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The ingredient label text to scan")),
		mcp.WithString("allergens", mcp.Description("Comma-separated allergen profile to filter against (e.g. milk,peanut)")),
		mcp.WithString("strategy", mcp.Description("Matching strategy: exact, fuzzy or both (default both)")),
		mcp.WithNumber("fuzzy_threshold", mcp.Description("Minimum fuzzy score 0-100 to accept a match (default 88)")),
		mcp.WithString("user", mcp.Description("User name for scan history")),
	)

	kit.RegisterMCPTool(srv, tool, scanEndpoint(svc), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		user, _ := args["user"].(string)
		strategy, _ := args["strategy"].(string)
		threshold, _ := args["fuzzy_threshold"].(float64)
		var allergens []string
		if v, _ := args["allergens"].(string); v != "" {
			allergens = splitList(v)
		}
		return &kit.MCPDecodeResult{Request: &scanReq{
			Text:      text,
			User:      user,
			Allergens: allergens,
			Opts: detect.Options{
				Strategy:       detect.Strategy(strings.ToLower(strategy)),
				FuzzyThreshold: int(threshold),
			},
		}}, nil
	})
}

func registerLookupBarcode(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("lookup_barcode",
		mcp.WithDescription("Look up a product barcode in the products catalog and scan its ingredient list for allergens."),
		mcp.WithString("barcode", mcp.Required(), mcp.Description("The product barcode (EAN/UPC)")),
		mcp.WithString("allergens", mcp.Description("Comma-separated allergen profile to filter against")),
	)

	kit.RegisterMCPTool(srv, tool, barcodeEndpoint(svc), func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		code, _ := args["barcode"].(string)
		var allergens []string
		if v, _ := args["allergens"].(string); v != "" {
			allergens = splitList(v)
		}
		return &kit.MCPDecodeResult{Request: &barcodeReq{Code: code, Allergens: allergens}}, nil
	})
}

func registerListAllergens(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool("list_allergens",
		mcp.WithDescription("List all known allergens with display names and synonym counts, plus loaded catalog metadata."),
	)

	kit.RegisterMCPTool(srv, tool, listAllergensEndpoint(svc), func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	})
}
