// Package docs registers the OpenAPI description of the location API with
// swag so gin-swagger can serve it.
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
        "/v1/geolocate": {
            "post": {
                "description": "Returns the estimated position of a device. A fix from at least two known access points is preferred over a cell fix.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Location"],
                "summary": "Locate a device from nearby cells and access points",
                "operationId": "geolocate",
                "parameters": [
                    {"type": "string", "description": "API key", "name": "key", "in": "query", "required": true},
                    {"description": "Observations", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.GeolocateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GeolocateResponse"}},
                    "400": {"description": "parseError or keyInvalid", "schema": {"$ref": "#/definitions/apierr.ErrorEnvelope"}},
                    "403": {"description": "dailyLimitExceeded", "schema": {"$ref": "#/definitions/apierr.ErrorEnvelope"}},
                    "404": {"description": "notFound", "schema": {"$ref": "#/definitions/apierr.ErrorEnvelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/v1/search": {
            "post": {
                "description": "Version 1 search. A failed lookup answers 200 with {\"status\": \"not_found\"}.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Location"],
                "summary": "Locate a device (version 1)",
                "operationId": "search",
                "parameters": [
                    {"type": "string", "description": "API key", "name": "key", "in": "query", "required": true},
                    {"description": "Observations", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SearchRequest"}}
                ],
                "responses": {
                    "200": {"description": "ok, or {\"status\": \"not_found\"}", "schema": {"$ref": "#/definitions/handlers.SearchResponse"}},
                    "400": {"description": "parseError or keyInvalid", "schema": {"$ref": "#/definitions/apierr.ErrorEnvelope"}},
                    "403": {"description": "dailyLimitExceeded", "schema": {"$ref": "#/definitions/apierr.ErrorEnvelope"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "apierr.ErrorEnvelope": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "integer", "example": 400},
                        "message": {"type": "string", "example": "Invalid API key"},
                        "errors": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/apierr.ErrorItem"}
                        }
                    }
                }
            }
        },
        "apierr.ErrorItem": {
            "type": "object",
            "properties": {
                "domain": {"type": "string", "example": "usageLimits"},
                "reason": {"type": "string", "example": "keyInvalid"},
                "message": {"type": "string", "example": "Missing or invalid API key."}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "internal_error"},
                "message": {"type": "string"}
            }
        },
        "handlers.GeolocateRequest": {
            "type": "object",
            "properties": {
                "radioType": {"type": "string", "example": "gsm"},
                "cellTowers": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "wifiAccessPoints": {"type": "array", "items": {"type": "object", "additionalProperties": true}}
            }
        },
        "handlers.GeolocateResponse": {
            "type": "object",
            "properties": {
                "location": {"$ref": "#/definitions/handlers.LatLng"},
                "accuracy": {"type": "number", "example": 150}
            }
        },
        "handlers.LatLng": {
            "type": "object",
            "properties": {
                "lat": {"type": "number", "example": 52.5192},
                "lng": {"type": "number", "example": 13.4061}
            }
        },
        "handlers.SearchRequest": {
            "type": "object",
            "properties": {
                "radio": {"type": "string", "example": "gsm"},
                "cell": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "wifi": {"type": "array", "items": {"type": "object", "additionalProperties": true}}
            }
        },
        "handlers.SearchResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "lat": {"type": "number", "example": 52.5192},
                "lon": {"type": "number", "example": 13.4061},
                "accuracy": {"type": "number", "example": 150}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ichnaea Location API",
	Description:      "Device geolocation from observed cell towers and WiFi access points.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
