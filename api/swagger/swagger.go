package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Admin Data API",
        "description": "Uniform list, detail, versioned update, delete and bulk update over tutoring marketplace records.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Records", "description": "List, detail, update and delete of any managed entity"},
        {"name": "Bulk", "description": "Apply one field value to many records"},
        {"name": "Entities", "description": "Catalog of managed entities and their field policies"}
    ],
    "parameters": {
        "Entity": {
            "name": "entity", "in": "path", "required": true, "type": "string",
            "enum": ["accounts", "instructor-profiles", "student-profiles", "bookings", "reviews", "schedules"]
        },
        "RecordID": {"name": "id", "in": "path", "required": true, "type": "integer", "format": "int64"},
        "IfMatch": {"name": "If-Match", "in": "header", "required": true, "type": "string", "description": "Version token from the ETag of the last read"}
    },
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness probe; checks the record store",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/Problem"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {"200": {"description": "Metrics exposition"}}
            }
        },
        "/api/v1/entities": {
            "get": {
                "tags": ["Entities"],
                "summary": "Describe managed entities",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/bulk-update": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Set one writable field on up to 100 records",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Aggregated outcome", "schema": {"$ref": "#/definitions/BulkResultEnvelope"}},
                    "400": {"description": "Request rejected before any write", "schema": {"$ref": "#/definitions/Problem"}},
                    "403": {"description": "Role cannot write", "schema": {"$ref": "#/definitions/Problem"}}
                }
            }
        },
        "/api/v1/{entity}": {
            "get": {
                "tags": ["Records"],
                "summary": "List records of an entity",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/Entity"},
                    {"name": "page", "in": "query", "type": "integer", "default": 1},
                    {"name": "page_size", "in": "query", "type": "integer", "default": 20, "maximum": 100},
                    {"name": "search", "in": "query", "type": "string", "maxLength": 200},
                    {"name": "sort", "in": "query", "type": "string", "description": "field[:asc|desc]"},
                    {"name": "fields", "in": "query", "type": "string", "description": "Comma separated projection"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/Problem"}},
                    "404": {"description": "Unknown entity", "schema": {"$ref": "#/definitions/Problem"}}
                }
            }
        },
        "/api/v1/{entity}/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Get a record with its version token",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/Entity"}, {"$ref": "#/parameters/RecordID"}],
                "responses": {
                    "200": {
                        "description": "OK",
                        "headers": {"ETag": {"type": "string"}, "Last-Modified": {"type": "string"}},
                        "schema": {"$ref": "#/definitions/Envelope"}
                    },
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Problem"}}
                }
            },
            "put": {
                "tags": ["Records"],
                "summary": "Update writable fields of a record",
                "description": "Non-writable keys are ignored.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/Entity"},
                    {"$ref": "#/parameters/RecordID"},
                    {"$ref": "#/parameters/IfMatch"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "headers": {"ETag": {"type": "string"}}, "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Malformed body or token", "schema": {"$ref": "#/definitions/Problem"}},
                    "409": {"description": "Version conflict", "schema": {"$ref": "#/definitions/Problem"}},
                    "422": {"description": "Invalid field value", "schema": {"$ref": "#/definitions/Problem"}},
                    "428": {"description": "If-Match missing", "schema": {"$ref": "#/definitions/Problem"}}
                }
            },
            "delete": {
                "tags": ["Records"],
                "summary": "Delete a record according to its entity policy",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/Entity"},
                    {"$ref": "#/parameters/RecordID"},
                    {"$ref": "#/parameters/IfMatch"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/DeleteRecordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Version conflict", "schema": {"$ref": "#/definitions/Problem"}},
                    "428": {"description": "If-Match missing", "schema": {"$ref": "#/definitions/Problem"}}
                }
            }
        }
    },
    "definitions": {
        "Problem": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "instance": {"type": "string"}
            }
        },
        "ListMeta": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "ListLinks": {
            "type": "object",
            "properties": {
                "self": {"type": "string"},
                "first": {"type": "string"},
                "last": {"type": "string"},
                "prev": {"type": "string"},
                "next": {"type": "string"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "meta": {"type": "object"}
            }
        },
        "ListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"type": "object"}},
                "meta": {"$ref": "#/definitions/ListMeta"},
                "links": {"$ref": "#/definitions/ListLinks"}
            }
        },
        "BulkUpdateRequest": {
            "type": "object",
            "required": ["entity", "ids", "field"],
            "properties": {
                "entity": {"type": "string"},
                "ids": {"type": "array", "maxItems": 100, "items": {"type": "integer", "format": "int64"}},
                "field": {"type": "string"},
                "value": {}
            }
        },
        "BulkResult": {
            "type": "object",
            "properties": {
                "updated_count": {"type": "integer"},
                "failed_ids": {"type": "array", "items": {"type": "integer", "format": "int64"}},
                "message": {"type": "string"}
            }
        },
        "BulkResultEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/BulkResult"}
            }
        },
        "DeleteRecordRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string", "maxLength": 500}
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
