// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/schoolevents/main.go -o docs
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "data.status: ok", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "503": {"description": "error.code: transient_storage", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/registrations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Admits the authenticated user to the event if a spot is free. A cancelled registration for the same event is re-activated.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "Register the current user for an event",
                "parameters": [
                    {
                        "description": "Event and optional comment",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/controllers.RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Registration confirmed", "schema": {"$ref": "#/definitions/controllers.RegistrationSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: not_found", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: duplicate_registration or capacity_exceeded", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "503": {"description": "error.code: transient_storage", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/registrations/my": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the authenticated user's active registrations, newest first, with event details. Cancelled registrations are not listed.",
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "List the current user's registrations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.MyRegistrationsSuccessResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "503": {"description": "error.code: transient_storage", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/registrations/{registrationID}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Cancels the authenticated user's registration and frees its spot. Unknown or malformed ids and registrations of other users are reported as not found.",
                "produces": ["application/json"],
                "tags": ["registrations"],
                "summary": "Cancel a registration",
                "parameters": [
                    {"type": "string", "description": "Registration ID (UUID)", "name": "registrationID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "data: null", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: not_found", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "500": {"description": "error.code: internal_error", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "503": {"description": "error.code: transient_storage", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.MyRegistrationsSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.RegistrationWithEvent"}},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.RegisterRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"},
                "event_id": {"type": "string"}
            }
        },
        "controllers.RegistrationSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.Registration"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "capacity": {"type": "integer"},
                "category": {"type": "string"},
                "confirmed_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "string"},
                "location": {"type": "string"},
                "starts_at": {"type": "string"},
                "title": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Registration": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"},
                "created_at": {"type": "string"},
                "event_id": {"type": "string"},
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["confirmed", "cancelled"]},
                "updated_at": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "domain.RegistrationWithEvent": {
            "type": "object",
            "properties": {
                "event": {"$ref": "#/definitions/domain.Event"},
                "registration": {"$ref": "#/definitions/domain.Registration"}
            }
        },
        "helpers.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SchoolEvents Registration API",
	Description:      "Capacity-limited event registration for school events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
