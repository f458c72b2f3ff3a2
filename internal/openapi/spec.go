package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/onpaj/heblo-mcp/pkg/logging"
)

// maxSpecBytes bounds the OpenAPI document read.
const maxSpecBytes = 16 << 20

// nullableEnumSchemas are upstream enum schemas that the API serializes
// as null in responses without declaring it. The published document is
// patched so generated tooling accepts those payloads.
var nullableEnumSchemas = []string{
	"ErrorCodes",
	"IssuedInvoiceErrorType",
}

// OperationPatch carries the identity injected into an upstream
// operation that the generator left anonymous.
type OperationPatch struct {
	OperationID string
	Summary     string
}

// Loader fetches the upstream OpenAPI document, repairs it, and parses
// it for tool generation.
type Loader struct {
	url    string
	client *http.Client
}

// NewLoader creates a loader for the document at url. A nil client
// falls back to a default with a 30 second timeout.
func NewLoader(url string, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{url: url, client: client}
}

// Load fetches, patches and parses the document. patches is keyed by
// "METHOD /path" and supplies operation identities; entries with no
// matching operation in the document are ignored.
func (l *Loader) Load(ctx context.Context, patches map[string]OperationPatch) (*openapi3.T, error) {
	raw, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	patchSchemas(doc)
	patched := patchOperations(doc, patches)
	logging.Debug("OpenAPI", "Patched %d operations in upstream document", patched)

	repaired, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize patched document: %w", err)
	}

	parsed, err := openapi3.NewLoader().LoadFromData(repaired)
	if err != nil {
		return nil, fmt.Errorf("failed to load patched OpenAPI document: %w", err)
	}
	return parsed, nil
}

// fetch retrieves the raw document bytes.
func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAPI endpoint returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSpecBytes))
}

// patchSchemas repairs the known defects in the generated component
// schemas: enums that come back null at runtime, and the DateOnly type
// the generator emits as an empty object.
func patchSchemas(doc map[string]any) {
	schemas := dig(doc, "components", "schemas")
	if schemas == nil {
		return
	}

	for _, name := range nullableEnumSchemas {
		schema, ok := schemas[name].(map[string]any)
		if !ok {
			continue
		}
		if enum, ok := schema["enum"].([]any); ok && !containsNull(enum) {
			schema["enum"] = append(enum, nil)
		}
		schema["nullable"] = true
	}

	if _, ok := schemas["DateOnly"]; ok {
		schemas["DateOnly"] = map[string]any{
			"type":        "string",
			"format":      "date",
			"description": "Calendar date in YYYY-MM-DD format",
		}
	}
}

// patchOperations injects operationId and summary into matching
// operations. Returns how many operations were patched.
func patchOperations(doc map[string]any, patches map[string]OperationPatch) int {
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		return 0
	}

	patched := 0
	for path, rawItem := range paths {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		for method, rawOp := range item {
			op, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}
			patch, ok := patches[strings.ToUpper(method)+" "+path]
			if !ok {
				continue
			}
			op["operationId"] = patch.OperationID
			if patch.Summary != "" {
				op["summary"] = patch.Summary
			}
			patched++
		}
	}
	return patched
}

// dig walks nested JSON objects, returning nil when any level is
// missing or not an object.
func dig(doc map[string]any, keys ...string) map[string]any {
	current := doc
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func containsNull(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}
