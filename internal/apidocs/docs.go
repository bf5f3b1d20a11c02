// Package apidocs registers the OpenAPI document served under /swagger/.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/probes": {
            "get": {
                "produces": ["application/json"],
                "tags": ["probes"],
                "summary": "List probes",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ProbesResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["probes"],
                "summary": "Start a probe for a catalog payload",
                "parameters": [
                    {"description": "Payload to download", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/types.StartProbeRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.StartProbeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/probes/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["probes"],
                "summary": "Get one probe",
                "parameters": [
                    {"type": "string", "description": "Payload identifier", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ProbeStatus"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["probes"],
                "summary": "Cancel a probe",
                "description": "Idempotent; unknown or finished probes are ignored.",
                "parameters": [
                    {"type": "string", "description": "Payload identifier", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/speedtest/files": {
            "get": {
                "produces": ["application/json"],
                "tags": ["speedtest"],
                "summary": "List downloadable speed test files",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CatalogResponse"}}
                }
            }
        },
        "/speedtest/{filename}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["speedtest"],
                "summary": "Download a generated speed test file",
                "parameters": [
                    {"type": "string", "description": "File name from the catalog", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found"}
                }
            }
        }
    },
    "definitions": {
        "types.StartProbeRequest": {
            "type": "object",
            "properties": {"id": {"type": "string", "example": "100MB"}}
        },
        "types.StartProbeResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "100MB"},
                "run_id": {"type": "string", "example": "3f1c9a52-3b1e-4c4e-9a53-3a8b1f0c7d11"}
            }
        },
        "types.ProbeStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "100MB"},
                "run_id": {"type": "string"},
                "label": {"type": "string"},
                "url": {"type": "string"},
                "phase": {"type": "string", "enum": ["running", "completed", "cancelled", "failed"]},
                "bytes_received": {"type": "integer"},
                "total_bytes": {"type": "integer"},
                "percent": {"type": "number"},
                "instantaneous_bps": {"type": "number"},
                "average_bps": {"type": "number"},
                "started_at_ms": {"type": "integer"},
                "updated_at_ms": {"type": "integer"},
                "finished_at_ms": {"type": "integer"},
                "elapsed_seconds": {"type": "number"},
                "error": {"type": "string"},
                "error_kind": {"type": "string", "enum": ["connect", "dns", "timeout", "status", "stream"]}
            }
        },
        "types.ProbesResponse": {
            "type": "object",
            "properties": {
                "probes": {"type": "array", "items": {"$ref": "#/definitions/types.ProbeStatus"}}
            }
        },
        "types.CatalogFile": {
            "type": "object",
            "properties": {
                "size": {"type": "string", "example": "100MB"},
                "filename": {"type": "string", "example": "100MB.bin"},
                "bytes": {"type": "integer", "example": 104857600},
                "url": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "types.CatalogResponse": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"$ref": "#/definitions/types.CatalogFile"}},
                "instructions": {
                    "type": "object",
                    "properties": {
                        "usage": {"type": "string"},
                        "examples": {
                            "type": "object",
                            "properties": {"wget": {"type": "string"}, "curl": {"type": "string"}}
                        }
                    }
                }
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "lgprobe API",
	Description:      "Concurrent bandwidth probes against looking-glass speed test payloads.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
