// Package docs holds the OpenAPI description served by gin-swagger.
// Regenerate with: swag init -g cmd/dedupd/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/rooms/{id}/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List live messages in a room",
                "operationId": "listMessages",
                "parameters": [
                    {"type": "string", "description": "Room ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "minimum": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMessagesResponse"}},
                    "304": {"description": "Not modified"},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Append a message to a room",
                "operationId": "postMessage",
                "parameters": [
                    {"type": "string", "description": "Room ID", "name": "id", "in": "path", "required": true},
                    {"description": "Message payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PostMessageRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.PostMessageResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/rooms/{id}/messages/{messageId}/classify": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Dedup"],
                "summary": "Run the duplicate filter on a stored message",
                "operationId": "classifyMessage",
                "parameters": [
                    {"type": "string", "description": "Room ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "format": "uuid", "description": "Message ID", "name": "messageId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Decision"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Duplicate audited but not yet removed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/dedup/preview": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Dedup"],
                "summary": "Dry-run the duplicate filter",
                "operationId": "previewDecision",
                "parameters": [
                    {"description": "Content to classify", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.PreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Decision"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/duplicates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Audit"],
                "summary": "List rejected duplicates",
                "operationId": "listDuplicates",
                "parameters": [
                    {"type": "string", "description": "Only this room", "name": "room", "in": "query"},
                    {"type": "integer", "default": 1, "minimum": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListDuplicatesResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/fingerprints": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Audit"],
                "summary": "List stored fingerprints",
                "operationId": "listFingerprints",
                "parameters": [
                    {"type": "string", "description": "Only this room", "name": "room", "in": "query"},
                    {"type": "integer", "default": 1, "minimum": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "maximum": 100, "minimum": 1, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListFingerprintsResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.MatchInfo": {
            "type": "object",
            "properties": {
                "fingerprint_id": {"type": "string"},
                "similarity": {"type": "number"},
                "type": {"type": "string", "enum": ["exact", "similar"]}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "room_id": {"type": "string"},
                "user_id": {"type": "string"},
                "author_kind": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Fingerprint": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "room_id": {"type": "string"},
                "message_id": {"type": "string"},
                "user_id": {"type": "string"},
                "normalized": {"type": "string"},
                "tokens": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"}
            }
        },
        "domain.DuplicateEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "room_id": {"type": "string"},
                "message_id": {"type": "string"},
                "user_id": {"type": "string"},
                "normalized": {"type": "string"},
                "match_info": {"$ref": "#/definitions/domain.MatchInfo"},
                "created_at": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "message not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer", "example": 1},
                "page_size": {"type": "integer", "example": 20},
                "total": {"type": "integer", "example": 42},
                "total_pages": {"type": "integer", "example": 3},
                "has_next": {"type": "boolean", "example": true}
            }
        },
        "handlers.PostMessageRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "user_id": {"type": "string", "example": "bot_weather"},
                "content": {"type": "string", "example": "Hola a todos! Que tal el dia?"},
                "author_kind": {"type": "string", "example": "automated"}
            }
        },
        "handlers.PostMessageResponse": {
            "type": "object",
            "properties": {
                "message": {"$ref": "#/definitions/domain.Message"}
            }
        },
        "handlers.ListMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListDuplicatesResponse": {
            "type": "object",
            "properties": {
                "duplicates": {"type": "array", "items": {"$ref": "#/definitions/domain.DuplicateEvent"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListFingerprintsResponse": {
            "type": "object",
            "properties": {
                "fingerprints": {"type": "array", "items": {"$ref": "#/definitions/domain.Fingerprint"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.PreviewRequest": {
            "type": "object",
            "required": ["content"],
            "properties": {
                "content": {"type": "string"},
                "user_id": {"type": "string"},
                "author_kind": {"type": "string"}
            }
        },
        "services.Decision": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string", "enum": ["skipped", "accepted", "duplicate"]},
                "reason": {"type": "string"},
                "room_id": {"type": "string"},
                "message_id": {"type": "string"},
                "author_kind": {"type": "string"},
                "normalized": {"type": "string"},
                "tokens": {"type": "array", "items": {"type": "string"}},
                "candidates": {"type": "integer"},
                "match": {"$ref": "#/definitions/domain.MatchInfo"},
                "fingerprint_id": {"type": "string"},
                "duplicate_event_id": {"type": "string"},
                "dry_run": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Chat Dedup API",
	Description:      "Duplicate-message filter for automated chat authors.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
