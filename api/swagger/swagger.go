package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Referral API",
        "description": "User registration, dual-token authentication and referral codes",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration, login, token rotation"},
        {"name": "Referral codes", "description": "Minting, redemption and lookup"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A backing store is unreachable"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/PublicUser"}},
                    "400": {"description": "USER_ALREADY_EXISTS, REFERRAL_CODE_NOT_FOUND or REFERRAL_CODE_ALREADY_USED", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "204": {"description": "Token pair issued in cookies"},
                    "400": {"description": "LOGIN_BAD_CREDENTIALS or LOGIN_USER_NOT_VERIFIED", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate token pair",
                "responses": {
                    "204": {"description": "Both cookies reset"},
                    "401": {"description": "INVALID_REFRESH_TOKEN", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "Both cookies cleared"},
                    "401": {"description": "Access token missing or invalid", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PublicUser"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/referral_code": {
            "post": {
                "tags": ["Referral codes"],
                "summary": "Mint referral code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/CreateReferralCodeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ReferralCode"}},
                    "400": {"description": "ACTIVE_REFERRAL_CODE_ALREADY_EXISTS", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "get": {
                "tags": ["Referral codes"],
                "summary": "Look up referral code by email",
                "parameters": [
                    {"name": "email", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK; both fields null when no redeemable code exists", "schema": {"$ref": "#/definitions/ReferralCodeLookup"}}
                }
            }
        },
        "/referral_code/{id}": {
            "delete": {
                "tags": ["Referral codes"],
                "summary": "Delete referral code",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "REFERRAL_CODE_NOT_FOUND", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/referral_code/referrals/{id}": {
            "get": {
                "tags": ["Referral codes"],
                "summary": "List referrals",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/PublicUser"}}},
                    "404": {"description": "USER_NOT_FOUND", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "referral_code": {"type": "string", "maxLength": 16}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "PublicUser": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "email": {"type": "string"},
                "active": {"type": "boolean"},
                "verified": {"type": "boolean"}
            }
        },
        "CreateReferralCodeRequest": {
            "type": "object",
            "properties": {
                "expired_at": {"type": "string", "format": "date-time"}
            }
        },
        "ReferralCode": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "referrer_id": {"type": "integer"},
                "code": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "expired_at": {"type": "string", "format": "date-time"}
            }
        },
        "ReferralCodeLookup": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "x-nullable": true},
                "referral_code": {"type": "string", "x-nullable": true}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "message": {"type": "string"}
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
