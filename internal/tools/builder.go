package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// maxResponseBytes bounds API response bodies returned as tool results.
const maxResponseBytes = 4 << 20

// Builder turns curated OpenAPI operations into MCP tools backed by
// live API calls.
type Builder struct {
	doc     *openapi3.T
	baseURL string
	client  *http.Client
}

// NewBuilder creates a builder calling the API at baseURL through the
// given client. The client's transport handles authentication.
func NewBuilder(doc *openapi3.T, baseURL string, client *http.Client) *Builder {
	return &Builder{
		doc:     doc,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Register builds a tool for every curated operation present in the
// document and adds it to the MCP server. Curated operations missing
// from the document are logged and skipped, so an upstream API change
// degrades a tool instead of the whole server.
func (b *Builder) Register(s *server.MCPServer) int {
	registered := 0
	for _, op := range Curated {
		spec, err := b.specFor(op)
		if err != nil {
			logging.Warn("Tools", "Skipping tool %s: %v", op.OperationID, err)
			continue
		}
		s.AddTool(spec.tool(), spec.handler(b.baseURL, b.client))
		registered++
	}
	logging.Info("Tools", "Registered %d of %d curated tools", registered, len(Curated))
	return registered
}

// toolSpec is one operation resolved against the document: its input
// schema plus everything the handler needs to assemble the request.
type toolSpec struct {
	op         Operation
	properties map[string]any
	required   []string

	pathParams  []string
	queryParams []string

	// bodyProps holds flattened request-body property names. When the
	// body schema is not a plain object, bodyWrapped exposes it as a
	// single "body" argument instead.
	bodyProps   []string
	bodyWrapped bool
}

// specFor resolves a curated operation against the loaded document.
func (b *Builder) specFor(op Operation) (*toolSpec, error) {
	item := b.doc.Paths.Find(op.Path)
	if item == nil {
		return nil, fmt.Errorf("path %s not found in OpenAPI document", op.Path)
	}
	operation := item.GetOperation(op.Method)
	if operation == nil {
		return nil, fmt.Errorf("no %s operation on %s", op.Method, op.Path)
	}

	spec := &toolSpec{
		op:         op,
		properties: map[string]any{},
	}

	params := append(openapi3.Parameters{}, item.Parameters...)
	params = append(params, operation.Parameters...)
	for _, ref := range params {
		p := ref.Value
		if p == nil {
			continue
		}
		switch p.In {
		case openapi3.ParameterInPath:
			spec.pathParams = append(spec.pathParams, p.Name)
			spec.required = append(spec.required, p.Name)
		case openapi3.ParameterInQuery:
			spec.queryParams = append(spec.queryParams, p.Name)
			if p.Required {
				spec.required = append(spec.required, p.Name)
			}
		default:
			continue
		}
		prop := schemaToMap(p.Schema, 0)
		if p.Description != "" {
			prop["description"] = p.Description
		}
		spec.properties[p.Name] = prop
	}

	b.addRequestBody(spec, operation)
	return spec, nil
}

// addRequestBody folds the JSON request body into the input schema. A
// plain object schema is flattened so the model fills individual
// fields; anything else becomes a single "body" argument.
func (b *Builder) addRequestBody(spec *toolSpec, operation *openapi3.Operation) {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return
	}
	media := operation.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return
	}

	schema := media.Schema.Value
	if len(schema.Properties) > 0 {
		for name, ref := range schema.Properties {
			if _, exists := spec.properties[name]; exists {
				continue
			}
			spec.properties[name] = schemaToMap(ref, 0)
			spec.bodyProps = append(spec.bodyProps, name)
		}
		for _, name := range schema.Required {
			spec.required = append(spec.required, name)
		}
		return
	}

	spec.bodyWrapped = true
	spec.properties["body"] = schemaToMap(media.Schema, 0)
	if operation.RequestBody.Value.Required {
		spec.required = append(spec.required, "body")
	}
}

// tool renders the MCP tool definition.
func (s *toolSpec) tool() mcp.Tool {
	return mcp.Tool{
		Name:        s.op.OperationID,
		Description: s.op.Summary,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: s.properties,
			Required:   s.required,
		},
	}
}

// handler returns the tool handler executing the API call.
func (s *toolSpec) handler(baseURL string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		path := s.op.Path
		for _, name := range s.pathParams {
			value, ok := args[name]
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("missing required parameter: %s", name)), nil
			}
			path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(fmt.Sprint(value)))
		}

		query := url.Values{}
		for _, name := range s.queryParams {
			if value, ok := args[name]; ok && value != nil {
				query.Set(name, fmt.Sprint(value))
			}
		}

		target := baseURL + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}

		body, err := s.requestBody(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req, err := http.NewRequestWithContext(ctx, s.op.Method, target, body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to build request: %v", err)), nil
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("request to Heblo API failed: %v", err)), nil
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read API response: %v", err)), nil
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return mcp.NewToolResultError(fmt.Sprintf("Heblo API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// requestBody assembles the JSON request body from the call arguments.
// Returns nil when the operation has no body or no body fields were
// provided.
func (s *toolSpec) requestBody(args map[string]any) (io.Reader, error) {
	var payload any

	switch {
	case s.bodyWrapped:
		value, ok := args["body"]
		if !ok {
			return nil, nil
		}
		payload = value
	case len(s.bodyProps) > 0:
		fields := map[string]any{}
		for _, name := range s.bodyProps {
			if value, ok := args[name]; ok {
				fields[name] = value
			}
		}
		if len(fields) == 0 {
			return nil, nil
		}
		payload = fields
	default:
		return nil, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// schemaToMap converts an OpenAPI schema into the JSON-schema fragment
// MCP tool inputs use. Depth is bounded to cut reference cycles.
func schemaToMap(ref *openapi3.SchemaRef, depth int) map[string]any {
	if ref == nil || ref.Value == nil || depth > 8 {
		return map[string]any{"type": "string"}
	}
	s := ref.Value

	out := map[string]any{}
	if s.Type != nil && len(*s.Type) > 0 {
		out["type"] = (*s.Type)[0]
	} else if len(s.Properties) > 0 {
		out["type"] = "object"
	} else {
		out["type"] = "string"
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = schemaToMap(s.Items, depth+1)
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, prop := range s.Properties {
			props[name] = schemaToMap(prop, depth+1)
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = s.Required
		}
	}
	return out
}
