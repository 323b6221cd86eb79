package api

import (
	"fmt"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/format"
)

// buildOpenAPIDoc returns an OpenAPI 3.1 document covering the query
// endpoint of every registered language.
func buildOpenAPIDoc(languages []command.Language) map[string]any {
	paths := map[string]any{}
	for _, l := range languages {
		paths["/"+l.String()] = buildLanguagePath(l)
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "Lingua Query Gateway",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

func buildLanguagePath(l command.Language) map[string]any {
	name := l.String()
	results := map[string]any{}
	for _, mt := range format.Supported {
		results[mt] = map[string]any{}
	}
	responses := map[string]any{
		"200": map[string]any{"description": "Query results", "content": results},
		"400": map[string]any{"description": "Malformed, missing or duplicated parameter"},
		"403": map[string]any{"description": "Insufficient permission"},
		"406": map[string]any{"description": "No acceptable result format"},
		"415": map[string]any{"description": "Unsupported request body"},
		"503": map[string]any{"description": "Overloaded or timed out"},
	}
	params := []any{
		queryParam(command.ParamQuery, "Read-only query text"),
		queryParam(command.ParamUpdate, "Update text (POST only)"),
		queryParam(command.ParamAccept, "Result media type override"),
	}
	security := []any{map[string]any{"BearerAuth": []string{}}}

	return map[string]any{
		"get": map[string]any{
			"operationId": fmt.Sprintf("%s__get", name),
			"summary":     fmt.Sprintf("Run a %s query", name),
			"tags":        []string{name},
			"parameters":  params,
			"responses":   responses,
			"security":    security,
		},
		"post": map[string]any{
			"operationId": fmt.Sprintf("%s__post", name),
			"summary":     fmt.Sprintf("Run a %s query or update", name),
			"tags":        []string{name},
			"parameters":  params,
			"requestBody": map[string]any{
				"required": false,
				"content": map[string]any{
					"application/x-www-form-urlencoded":        map[string]any{},
					fmt.Sprintf("application/%s-query", name):  map[string]any{},
					fmt.Sprintf("application/%s-update", name): map[string]any{},
				},
			},
			"responses": responses,
			"security":  security,
		},
	}
}

func queryParam(name, description string) map[string]any {
	return map[string]any{
		"name":        name,
		"in":          "query",
		"required":    false,
		"description": description,
		"schema":      map[string]any{"type": "string"},
	}
}
