// Package docs registers the back-office OpenAPI document with swag so
// gin-swagger can serve it at /swagger/index.html.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/orders": {"get": {"tags": ["orders"], "summary": "List orders", "parameters": [
            {"name": "status", "in": "query", "type": "string"},
            {"name": "type", "in": "query", "type": "string"},
            {"name": "q", "in": "query", "type": "string"},
            {"name": "limit", "in": "query", "type": "integer"},
            {"name": "offset", "in": "query", "type": "integer"}],
            "responses": {"200": {"description": "OK"}}}},
        "/orders/{id}": {"get": {"tags": ["orders"], "summary": "Order with items", "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/orders/{id}/actions": {"get": {"tags": ["orders"], "summary": "Statuses the order can move to", "responses": {"200": {"description": "OK"}}}},
        "/orders/{id}/status": {"post": {"tags": ["orders"], "summary": "Change order status", "responses": {"200": {"description": "OK"}, "422": {"description": "Transition rejected"}}}},
        "/orders/{id}/driver": {"post": {"tags": ["drivers"], "summary": "Assign a driver", "responses": {"201": {"description": "Created"}, "409": {"description": "Driver busy or order assigned"}}}},
        "/orders/{id}/delivery-code": {
            "get": {"tags": ["delivery"], "summary": "Delivery code status", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["delivery"], "summary": "Generate a delivery code", "responses": {"201": {"description": "Created"}}}},
        "/orders/{id}/delivery-code/confirm": {"post": {"tags": ["delivery"], "summary": "Confirm a delivery code", "responses": {"200": {"description": "OK"}, "409": {"description": "Expired or already confirmed"}, "422": {"description": "Wrong code"}}}},
        "/drivers": {
            "get": {"tags": ["drivers"], "summary": "Active drivers", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["drivers"], "summary": "Create driver", "responses": {"201": {"description": "Created"}}}},
        "/drivers/available": {"get": {"tags": ["drivers"], "summary": "Drivers free for a new order", "responses": {"200": {"description": "OK"}}}},
        "/drivers/{id}": {"patch": {"tags": ["drivers"], "summary": "Set active/available flags", "responses": {"200": {"description": "OK"}}}},
        "/drivers/{id}/position": {"put": {"tags": ["drivers"], "summary": "Report driver position", "responses": {"204": {"description": "No content"}}}},
        "/drivers/{id}/earnings": {"get": {"tags": ["earnings"], "summary": "Earnings of one driver", "responses": {"200": {"description": "OK"}}}},
        "/earnings": {"get": {"tags": ["earnings"], "summary": "Fleet earnings report", "responses": {"200": {"description": "OK"}}}},
        "/cashier/cart": {"post": {"tags": ["cashier"], "summary": "Price a cart from the menu", "responses": {"200": {"description": "OK"}}}},
        "/cashier/checkout": {"post": {"tags": ["cashier"], "summary": "Create a counter order", "responses": {"201": {"description": "Created"}}}},
        "/cashier/drafts/{terminal}": {
            "get": {"tags": ["cashier"], "summary": "Pending draft", "responses": {"200": {"description": "OK"}, "404": {"description": "No draft"}}},
            "put": {"tags": ["cashier"], "summary": "Save draft", "responses": {"200": {"description": "OK"}, "409": {"description": "Draft pending"}}}},
        "/cashier/drafts/{terminal}/resolve": {"post": {"tags": ["cashier"], "summary": "Resume or discard a draft", "responses": {"200": {"description": "OK"}}}},
        "/menu/items": {
            "get": {"tags": ["catalog"], "summary": "Search menu items", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["catalog"], "summary": "Create menu item", "responses": {"201": {"description": "Created"}}}},
        "/menu/items/{id}": {
            "get": {"tags": ["catalog"], "summary": "Menu item with supplements", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["catalog"], "summary": "Update menu item", "responses": {"200": {"description": "OK"}}}},
        "/menu/categories": {"get": {"tags": ["catalog"], "summary": "Categories", "responses": {"200": {"description": "OK"}}}},
        "/customers": {
            "get": {"tags": ["customers"], "summary": "Search customers", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["customers"], "summary": "Create customer", "responses": {"201": {"description": "Created"}}}},
        "/customers/{id}": {
            "get": {"tags": ["customers"], "summary": "Customer", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["customers"], "summary": "Update customer", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["customers"], "summary": "Deactivate customer", "responses": {"204": {"description": "No content"}}}},
        "/ws": {"get": {"tags": ["realtime"], "summary": "Websocket feed (orders, drivers, tracking:<id>, delivery:<id>)", "responses": {"101": {"description": "Switching protocols"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Restaurant back-office API",
	Description:      "Orders, drivers, delivery codes, live tracking, cashier and earnings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
