// Package mcp provides the MCP (Model Context Protocol) server for fluentgen.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/fluentgen/internal/description"
	"github.com/Benny93/fluentgen/internal/ingestion"
	"github.com/Benny93/fluentgen/internal/storage"
)

const (
	serverName    = "fluentgen"
	serverVersion = "0.1.0"

	overviewURI  = "fluentgen://overview"
	overviewMIME = "text/markdown"
	defaultLimit = 20
)

// Store is the part of a storage backend the server reads from.
type Store interface {
	GetDescription(ctx context.Context, qualifiedName string) (*storage.Record, error)
	ListDescriptions(ctx context.Context) ([]*storage.Record, error)
	Search(ctx context.Context, query string, limit int) ([]storage.SearchResult, error)
	Files(ctx context.Context) ([]string, error)
	Count() int
}

// Server represents the MCP server.
type Server struct {
	store  Store
	opts   ingestion.Options
	server *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// DescribeArgs are the arguments of fluentgen_describe.
type DescribeArgs struct {
	Path  string `json:"path" jsonschema:"Java file or directory to describe"`
	Class string `json:"class,omitempty" jsonschema:"Only return the class with this simple or qualified name"`
}

// ShowArgs are the arguments of fluentgen_show.
type ShowArgs struct {
	Class string `json:"class" jsonschema:"Simple or qualified class name"`
}

// QueryArgs are the arguments of fluentgen_query.
type QueryArgs struct {
	Query string `json:"query" jsonschema:"Search text matched against class, property and type names"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

// ListArgs are the arguments of fluentgen_list.
type ListArgs struct{}

// NewServer creates a new MCP server. opts configures fluentgen_describe.
func NewServer(store Store, opts ingestion.Options) *Server {
	s := &Server{
		store: store,
		opts:  opts,
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	s.registerTools()
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "fluentgen_describe",
			Description: "Describe the classes of a Java file or directory: properties, their types and the imports an assertion class needs.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path":  {Type: "string", Description: "Java file or directory to describe"},
					"class": {Type: "string", Description: "Only return the class with this simple or qualified name"},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "fluentgen_show",
			Description: "Show the stored description of a class.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"class": {Type: "string", Description: "Simple or qualified class name"},
				},
				Required: []string{"class"},
			},
		},
		{
			Name:        "fluentgen_query",
			Description: "Search stored descriptions by class, property and type names.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "fluentgen_list",
			Description: "List all described classes with their source files.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         overviewURI,
			Name:        "Description Store Overview",
			Description: "Counts of described classes and source files",
			MimeType:    overviewMIME,
		},
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case overviewURI:
		return s.getOverview(ctx)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves one MCP session as newline-delimited JSON over stdin and
// stdout until stdin is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}
	return s.server.Run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(stdin),
		Writer: nopWriteCloser{stdout},
	})
}

// nopWriteCloser leaves closing stdout to the caller.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Tool Handlers

func (s *Server) handleDescribe(ctx context.Context, args DescribeArgs) (string, error) {
	if args.Path == "" {
		return "No path provided", nil
	}

	descs, failures, err := ingestion.Describe(ctx, args.Path, s.opts)
	if err != nil {
		return "", fmt.Errorf("describing %s: %w", args.Path, err)
	}

	if args.Class != "" {
		var selected []*description.ClassDescription
		for _, d := range descs {
			if matchesClass(d, args.Class) {
				selected = append(selected, d)
			}
		}
		if len(selected) == 0 {
			return fmt.Sprintf("Class '%s' not found in %s", args.Class, args.Path), nil
		}
		descs = selected
	}

	var sb strings.Builder
	for _, d := range descs {
		sb.WriteString(formatDescription(d, ""))
		sb.WriteString("\n")
	}
	if len(descs) == 0 {
		sb.WriteString("No classes found\n")
	}
	if len(failures) > 0 {
		sb.WriteString("## Skipped\n\n")
		for _, f := range failures {
			sb.WriteString(fmt.Sprintf("- %s\n", f.Error()))
		}
	}
	return sb.String(), nil
}

func (s *Server) handleShow(ctx context.Context, args ShowArgs) (string, error) {
	if args.Class == "" {
		return "No class provided", nil
	}

	rec, err := ResolveClass(ctx, s.store, args.Class)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return fmt.Sprintf("Class '%s' not found. Run 'fluentgen scan' first.", args.Class), nil
	}

	out := formatDescription(rec.Description, rec.FilePath)
	data, err := json.MarshalIndent(rec.Description, "", "  ")
	if err != nil {
		return "", err
	}
	return out + "\n```json\n" + string(data) + "\n```\n", nil
}

func (s *Server) handleQuery(ctx context.Context, args QueryArgs) (string, error) {
	if args.Query == "" {
		return "No query provided", nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	results, err := s.store.Search(ctx, args.Query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found", nil
	}
	return formatSearchResults(results, args.Query), nil
}

func (s *Server) handleList(ctx context.Context) (string, error) {
	records, err := s.store.ListDescriptions(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "No classes described. Run 'fluentgen scan' first.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Described classes (%d)\n\n", len(records)))
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("- %s (%d properties) - %s\n",
			rec.QualifiedName(), len(rec.Description.Getters()), rec.FilePath))
	}
	return sb.String(), nil
}

// Resource Handlers

func (s *Server) getOverview(ctx context.Context) (string, error) {
	files, err := s.store.Files(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# fluentgen Description Store Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Classes:** %d\n", s.store.Count()))
	sb.WriteString(fmt.Sprintf("**Files:** %d\n", len(files)))
	sb.WriteString("\n## Type descriptions\n\n")
	sb.WriteString("- plain: the property type itself\n")
	sb.WriteString("- array: the array type and its component type\n")
	sb.WriteString("- iterable: a java.lang.Iterable type and its element type\n")
	return sb.String(), nil
}

// formatDescription renders a description as markdown.
func formatDescription(d *description.ClassDescription, filePath string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", d.QualifiedName()))
	if filePath != "" {
		sb.WriteString(fmt.Sprintf("**File:** %s\n\n", filePath))
	}

	getters := d.Getters()
	if len(getters) == 0 {
		sb.WriteString("No properties.\n")
	} else {
		sb.WriteString("| Property | Type | Kind | Element |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, g := range getters {
			kind, element := "plain", ""
			switch {
			case g.Type.IsArray:
				kind, element = "array", g.Type.Element().String()
			case g.Type.IsIterable:
				kind, element = "iterable", g.Type.Element().String()
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", g.PropertyName, g.Type.TypeName, kind, element))
		}
	}

	if imports := d.Imports(); len(imports) > 0 {
		sb.WriteString("\n**Imports:**\n")
		for _, imp := range imports {
			sb.WriteString(fmt.Sprintf("- %s\n", imp))
		}
	}
	return sb.String()
}

// formatSearchResults formats search results as markdown.
func formatSearchResults(results []storage.SearchResult, query string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search results for '%s'\n\n", query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s** (score %.0f)\n", i+1, r.QualifiedName, r.Score))
		sb.WriteString(fmt.Sprintf("   File: %s\n", r.FilePath))
		if len(r.Properties) > 0 {
			sb.WriteString(fmt.Sprintf("   Properties: %s\n", strings.Join(r.Properties, ", ")))
		}
	}
	return sb.String()
}

// ResolveClass finds a record by qualified name, falling back to a unique
// simple-name match among search hits. Returns nil if nothing matches.
func ResolveClass(ctx context.Context, store Store, name string) (*storage.Record, error) {
	rec, err := store.GetDescription(ctx, name)
	if err != nil || rec != nil {
		return rec, err
	}

	results, err := store.Search(ctx, name, defaultLimit)
	if err != nil {
		return nil, err
	}
	var match string
	for _, r := range results {
		if r.ClassName != name && !strings.HasSuffix(r.QualifiedName, "."+name) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("class name %q is ambiguous: %s, %s", name, match, r.QualifiedName)
		}
		match = r.QualifiedName
	}
	if match == "" {
		return nil, nil
	}
	return store.GetDescription(ctx, match)
}

func matchesClass(d *description.ClassDescription, name string) bool {
	return d.QualifiedName() == name || d.ClassType().Name == name ||
		strings.HasSuffix(d.QualifiedName(), "."+name)
}

// textResult wraps handler output for the SDK.
func textResult(text string, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// registerTools registers the tools with the SDK server.
func (s *Server) registerTools() {
	tools := make(map[string]Tool)
	for _, t := range s.ListTools() {
		tools[t.Name] = t
	}
	sdkTool := func(name string) *mcp.Tool {
		t := tools[name]
		return &mcp.Tool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}

	mcp.AddTool(s.server, sdkTool("fluentgen_describe"),
		func(ctx context.Context, _ *mcp.CallToolRequest, args DescribeArgs) (*mcp.CallToolResult, any, error) {
			return textResult(s.handleDescribe(ctx, args))
		})
	mcp.AddTool(s.server, sdkTool("fluentgen_show"),
		func(ctx context.Context, _ *mcp.CallToolRequest, args ShowArgs) (*mcp.CallToolResult, any, error) {
			return textResult(s.handleShow(ctx, args))
		})
	mcp.AddTool(s.server, sdkTool("fluentgen_query"),
		func(ctx context.Context, _ *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
			return textResult(s.handleQuery(ctx, args))
		})
	mcp.AddTool(s.server, sdkTool("fluentgen_list"),
		func(ctx context.Context, _ *mcp.CallToolRequest, _ ListArgs) (*mcp.CallToolResult, any, error) {
			return textResult(s.handleList(ctx))
		})
}

// registerResources registers the resources with the SDK server.
func (s *Server) registerResources() {
	for _, r := range s.ListResources() {
		s.server.AddResource(&mcp.Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MimeType,
		}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			text, err := s.ReadResource(ctx, req.Params.URI)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{URI: req.Params.URI, MIMEType: r.MimeType, Text: text}},
			}, nil
		})
	}
}
