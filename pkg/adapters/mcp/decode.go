package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("%w: marshal args: %v", errInvalidArguments, err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}
	return result, nil
}
