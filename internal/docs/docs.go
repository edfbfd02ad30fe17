// Package docs registers the OpenAPI description served under /swagger/.
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
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/reminders/upcoming": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "List tenants due within the reminder window",
                "parameters": [
                    {"type": "string", "description": "Owner id", "name": "ownerId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reminder.Upcoming"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/reminders/send": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "Send reminders to selected tenants",
                "parameters": [
                    {"description": "Dispatch request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/reminder.SendRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reminder.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/reminders/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "List recent dispatch logs",
                "parameters": [
                    {"type": "string", "description": "Owner id", "name": "ownerId", "in": "query"},
                    {"type": "integer", "description": "Max entries (1-50)", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.ReminderLog"}}}}
            }
        },
        "/api/payments/checkout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Open a hosted checkout session",
                "parameters": [
                    {"description": "Checkout request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/payment.CheckoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.CreatedSession"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/api/payments/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Reconciled payment status per tenant",
                "parameters": [
                    {"type": "string", "description": "Owner id", "name": "ownerId", "in": "query"},
                    {"type": "string", "description": "Tenant id", "name": "tenantId", "in": "query"},
                    {"type": "string", "description": "Property id", "name": "propertyId", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.PaymentStatus"}}}}
            }
        },
        "/api/payments/webhook": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Payments"],
                "summary": "Stripe webhook receiver",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {"detail": {"type": "string"}}
        },
        "reminder.SendRequest": {
            "type": "object",
            "properties": {
                "ownerId": {"type": "string"},
                "tenantIds": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"},
                "dueDate": {"type": "string"}
            }
        },
        "reminder.Result": {
            "type": "object",
            "properties": {
                "ownerId": {"type": "string"},
                "mode": {"type": "string"},
                "total": {"type": "integer"},
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "dueDate": {"type": "string"},
                "logId": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/model.DispatchResult"}}
            }
        },
        "reminder.Upcoming": {
            "type": "object",
            "properties": {
                "totalRecipients": {"type": "integer"},
                "dueDate": {"type": "string"},
                "reminderDate": {"type": "string"},
                "reminders": {"type": "array", "items": {"$ref": "#/definitions/model.ReminderCandidate"}}
            }
        },
        "model.ReminderCandidate": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "tenantName": {"type": "string"},
                "tenantEmail": {"type": "string"},
                "ownerId": {"type": "string"},
                "propertyName": {"type": "string"},
                "amount": {"type": "number"},
                "amountFormatted": {"type": "string"},
                "dueDate": {"type": "string"},
                "daysUntilDue": {"type": "integer"},
                "paymentMonths": {"type": "integer"}
            }
        },
        "model.DispatchResult": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "tenantEmail": {"type": "string"},
                "status": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "model.ReminderLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "ownerId": {"type": "string"},
                "mode": {"type": "string"},
                "total": {"type": "integer"},
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "dueDate": {"type": "string"},
                "templatePreview": {"type": "string"},
                "createdAt": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/model.DispatchResult"}}
            }
        },
        "payment.CheckoutRequest": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "tenantId": {"type": "string"},
                "ownerId": {"type": "string"},
                "propertyId": {"type": "string"},
                "tenantEmail": {"type": "string"},
                "tenantName": {"type": "string"},
                "propertyName": {"type": "string"},
                "dueDate": {"type": "string"},
                "paymentMonths": {"type": "integer"},
                "successUrl": {"type": "string"},
                "cancelUrl": {"type": "string"}
            }
        },
        "payment.CreatedSession": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "model.PaymentStatus": {
            "type": "object",
            "properties": {
                "tenantId": {"type": "string"},
                "status": {"type": "string"},
                "sessionId": {"type": "string"},
                "amount": {"type": "number"},
                "currency": {"type": "string"},
                "propertyId": {"type": "string"},
                "paymentMonths": {"type": "string"},
                "dueDate": {"type": "string"},
                "createdAt": {"type": "string"}
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
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Rent Reminder API",
	Description:      "Rent due dates, tenant reminders and online rent payments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
