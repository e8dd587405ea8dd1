// Package figmamcp exports Figma nodes as hosted images.
//
// Given a file key and node ids, it renders the nodes through the Figma API, recompresses the
// images, uploads them to a storage backend and reports the public URL of every image (or why it
// failed). The same operation is served as the get_figma_images MCP tool by
// cmd/figma-structured-mcp; this root package exposes it as a Go API.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the package is named figmamcp:
//
//	import "github.com/kataras/figma-structured-mcp" // package figmamcp
//
// # Quick start
//
//	exp, err := figmamcp.New(ctx, figmamcp.Options{
//	    AccessToken: os.Getenv("FIGMA_ACCESS_TOKEN"),
//	    Storage: storage.Config{
//	        Provider: storage.ProviderLocal,
//	        Local:    storage.LocalConfig{Dir: "public", PublicBaseURL: "https://static.example.com"},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	params := figmamcp.DefaultParams()
//	params.FileKey = "ABC123"
//	params.NodeIDs = "1:2,3:4"
//	report, err := exp.Export(ctx, params)
//
// # Errors
//
// Export returns an error only for invalid parameters ([imager.ErrInvalidRequest]) and for Figma
// failures before any image was processed ([imager.ErrUpstreamUnavailable]). Every other problem
// is reported per image in [imager.Report.Failed].
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output.
package figmamcp
