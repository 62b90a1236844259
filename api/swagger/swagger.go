package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Duetable API",
        "description": "Assignment tracking backend for a single signed-in student",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Session", "description": "Sign in, sign out and semester selection"},
        {"name": "Courses", "description": "Course list and semester picker"},
        {"name": "Assignments", "description": "Sync, dashboard, due table and finished flags"},
        {"name": "Observability", "description": "Runtime metrics"}
    ],
    "paths": {
        "/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Current session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Session"],
                "summary": "Sign in",
                "description": "Looks the user up by email and registers them upstream on first use",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Session"],
                "summary": "Sign out",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Signed out"}}
            }
        },
        "/session/term": {
            "put": {
                "tags": ["Session"],
                "summary": "Select semester",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetTermRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown semester", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/semesters": {
            "get": {
                "tags": ["Courses"],
                "summary": "Semester options",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "term", "in": "query", "type": "string", "description": "selected to filter by the session semester"},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Dashboard counters for the selected semester",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assignments/sync": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Sync assignments for the selected semester",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "force", "in": "query", "type": "boolean"},
                    {"name": "wait", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Loaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Details loading", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Summary fetch failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/status": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Sync progress",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Due table page",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "dueBucket", "in": "query", "type": "string", "enum": ["overdue", "today", "week", "month", "no-date"]},
                    {"name": "sortBy", "in": "query", "type": "string", "enum": ["name", "dueDate", "points", "course", "grade"]},
                    {"name": "order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/assignments/export": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Export the filtered due table",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/assignments/{id}/finished": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Toggle the finished flag",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "wait", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Rejected and rolled back", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Runtime metrics summary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "canvasApiKey", "school", "fullName"],
            "properties": {
                "email": {"type": "string"},
                "canvasApiKey": {"type": "string"},
                "school": {"type": "string"},
                "fullName": {"type": "string"},
                "scheduleIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SetTermRequest": {
            "type": "object",
            "required": ["term"],
            "properties": {
                "term": {"type": "string", "example": "2025 Fall"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
