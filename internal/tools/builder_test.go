package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "openapi": "3.0.1",
  "info": {"title": "Heblo API", "version": "1.0"},
  "paths": {
    "/api/Catalog": {
      "get": {
        "operationId": "catalog_list",
        "parameters": [
          {"name": "pageSize", "in": "query", "schema": {"type": "integer"}},
          {"name": "productName", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/api/Catalog/{productCode}": {
      "get": {
        "operationId": "catalog_detail",
        "parameters": [
          {"name": "productCode", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/api/Dashboard/settings": {
      "post": {
        "operationId": "dashboard_settings_update",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "tileId": {"type": "string"},
                  "enabled": {"type": "boolean"}
                },
                "required": ["tileId"]
              }
            }
          }
        },
        "responses": {"200": {"description": "OK"}}
      }
    }
  }
}`

func loadTestDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(testDocument))
	require.NoError(t, err)
	return doc
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestSpecForBuildsInputSchema(t *testing.T) {
	b := NewBuilder(loadTestDoc(t), "http://unused", http.DefaultClient)

	spec, err := b.specFor(Operation{"GET", "/api/Catalog/{productCode}", "catalog_detail", "Get product"})
	require.NoError(t, err)

	assert.Contains(t, spec.properties, "productCode")
	assert.Equal(t, []string{"productCode"}, spec.required)
	assert.Equal(t, []string{"productCode"}, spec.pathParams)

	tool := spec.tool()
	assert.Equal(t, "catalog_detail", tool.Name)
	assert.Equal(t, "Get product", tool.Description)
}

func TestSpecForQueryParamsOptional(t *testing.T) {
	b := NewBuilder(loadTestDoc(t), "http://unused", http.DefaultClient)

	spec, err := b.specFor(Operation{"GET", "/api/Catalog", "catalog_list", "List"})
	require.NoError(t, err)

	assert.Contains(t, spec.properties, "pageSize")
	assert.Contains(t, spec.properties, "productName")
	assert.Empty(t, spec.required)
	assert.Equal(t, map[string]any{"type": "integer"}, spec.properties["pageSize"])
}

func TestSpecForFlattensRequestBody(t *testing.T) {
	b := NewBuilder(loadTestDoc(t), "http://unused", http.DefaultClient)

	spec, err := b.specFor(Operation{"POST", "/api/Dashboard/settings", "dashboard_settings_update", "Update"})
	require.NoError(t, err)

	assert.Contains(t, spec.properties, "tileId")
	assert.Contains(t, spec.properties, "enabled")
	assert.Contains(t, spec.required, "tileId")
	assert.False(t, spec.bodyWrapped)
}

func TestSpecForMissingOperation(t *testing.T) {
	b := NewBuilder(loadTestDoc(t), "http://unused", http.DefaultClient)

	_, err := b.specFor(Operation{"GET", "/api/NotThere", "missing", ""})
	require.Error(t, err)

	_, err = b.specFor(Operation{"DELETE", "/api/Catalog", "wrong_method", ""})
	require.Error(t, err)
}

func TestHandlerGet(t *testing.T) {
	var gotPath, gotQuery string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer api.Close()

	b := NewBuilder(loadTestDoc(t), api.URL, api.Client())
	spec, err := b.specFor(Operation{"GET", "/api/Catalog", "catalog_list", "List"})
	require.NoError(t, err)

	result, err := spec.handler(b.baseURL, b.client)(context.Background(),
		callRequest("catalog_list", map[string]any{"pageSize": 10}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "/api/Catalog", gotPath)
	assert.Equal(t, "pageSize=10", gotQuery)
	assert.JSONEq(t, `{"items":[]}`, resultText(t, result))
}

func TestHandlerEscapesPathParams(t *testing.T) {
	var gotURI string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		_, _ = w.Write([]byte(`{}`))
	}))
	defer api.Close()

	b := NewBuilder(loadTestDoc(t), api.URL, api.Client())
	spec, err := b.specFor(Operation{"GET", "/api/Catalog/{productCode}", "catalog_detail", ""})
	require.NoError(t, err)

	result, err := spec.handler(b.baseURL, b.client)(context.Background(),
		callRequest("catalog_detail", map[string]any{"productCode": "AB 12/3"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "/api/Catalog/AB%2012%2F3", gotURI)
}

func TestHandlerMissingPathParam(t *testing.T) {
	b := NewBuilder(loadTestDoc(t), "http://unused", http.DefaultClient)
	spec, err := b.specFor(Operation{"GET", "/api/Catalog/{productCode}", "catalog_detail", ""})
	require.NoError(t, err)

	result, err := spec.handler(b.baseURL, b.client)(context.Background(),
		callRequest("catalog_detail", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "productCode")
}

func TestHandlerPostsFlattenedBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer api.Close()

	b := NewBuilder(loadTestDoc(t), api.URL, api.Client())
	spec, err := b.specFor(Operation{"POST", "/api/Dashboard/settings", "dashboard_settings_update", ""})
	require.NoError(t, err)

	result, err := spec.handler(b.baseURL, b.client)(context.Background(),
		callRequest("dashboard_settings_update", map[string]any{"tileId": "tile-1", "enabled": true}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]any{"tileId": "tile-1", "enabled": true}, gotBody)
}

func TestHandlerAPIError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"no access"}`))
	}))
	defer api.Close()

	b := NewBuilder(loadTestDoc(t), api.URL, api.Client())
	spec, err := b.specFor(Operation{"GET", "/api/Catalog", "catalog_list", ""})
	require.NoError(t, err)

	result, err := spec.handler(b.baseURL, b.client)(context.Background(),
		callRequest("catalog_list", nil))
	require.NoError(t, err, "API failures are tool errors, not protocol errors")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "403")
	assert.Contains(t, resultText(t, result), "no access")
}

func TestRegisterSkipsOperationsMissingFromDocument(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer api.Close()

	s := server.NewMCPServer("test", "0.0.1", server.WithToolCapabilities(true))
	b := NewBuilder(loadTestDoc(t), api.URL, api.Client())

	registered := b.Register(s)
	assert.Equal(t, 3, registered, "only operations present in the document become tools")
}
