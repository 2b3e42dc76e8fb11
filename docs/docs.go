// Package docs registers the OpenAPI description served at /swagger.
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
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Obtain a bearer token", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/roaster/start": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Start the control loop",
                "description": "Stops any running loop and starts a new one. Omitted fields use the configured serial settings.",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/handlers.StartRequest"}}],
                "responses": {"200": {"description": "status, state"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/roaster/stop": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Stop the control loop", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/roaster/engage": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Engage external control", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/roaster/disengage": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Disengage external control", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/roaster/setpoints": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Stage set-points",
                "description": "Fans take 0-100 and are rounded to the device's steps of 10. Values take effect while control is engaged.",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetpointsRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/roaster/reading": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Latest reading", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Reading"}}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/roaster/state": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["roaster"], "summary": "Roaster state", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RoasterState"}}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List logs", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["START", "STOP", "ENGAGE", "DISENGAGE", "SETPOINTS", "SAFETY_CUTOFF", "SAFETY_CLEARED"], "type": "string", "name": "type", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "500": {"description": "Internal Server Error"}}}
        },
        "/ws": {
            "get": {"tags": ["roaster"], "summary": "Live roaster state",
                "description": "Upgrades to a WebSocket and pushes {\"type\":\"state\",\"data\":RoasterState} every interval.",
                "responses": {"101": {"description": "Switching Protocols"}}}
        }
    },
    "definitions": {
        "handlers.operatorCredentials": {
            "type": "object", "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "handlers.StartRequest": {
            "type": "object",
            "properties": {
                "port": {"type": "string", "example": "/dev/ttyUSB0"},
                "baud_rate": {"type": "integer", "example": 115200},
                "byte_size": {"type": "integer", "example": 8},
                "parity": {"type": "string", "example": "N"},
                "stop_bits": {"type": "integer", "example": 1},
                "timeout_ms": {"type": "integer", "example": 1000},
                "interval_ms": {"type": "integer", "example": 500}
            }
        },
        "handlers.SetpointsRequest": {
            "type": "object",
            "properties": {
                "heater": {"type": "integer", "example": 60},
                "fan": {"type": "integer", "example": 40},
                "main_fan": {"type": "integer", "example": 30},
                "solenoid": {"type": "boolean", "example": false},
                "drum_motor": {"type": "boolean", "example": true},
                "cooling_motor": {"type": "boolean", "example": false}
            }
        },
        "models.Reading": {
            "type": "object",
            "properties": {
                "bt_c": {"type": "number"},
                "et_c": {"type": "number"},
                "heater": {"type": "integer"},
                "main_fan": {"type": "integer"}
            }
        },
        "models.RoasterState": {
            "type": "object",
            "properties": {
                "running": {"type": "boolean"},
                "engaged": {"type": "boolean"},
                "safety_tripped": {"type": "boolean"},
                "bt_c": {"type": "number"},
                "et_c": {"type": "number"},
                "heater": {"type": "integer"},
                "fan": {"type": "integer"},
                "main_fan": {"type": "integer"},
                "solenoid_open": {"type": "boolean"},
                "drum_motor": {"type": "boolean"},
                "cooling_motor": {"type": "boolean"},
                "chaff_tray": {"type": "boolean"},
                "setpoints": {"type": "object"},
                "updated_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Roaster control API",
	Description:      "Serial control loop, safety interlock and audit log for a drum coffee roaster.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
