package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
)

// Envelope is the response contract shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Success: true, Data: data})
}

// List sends a success response for collections, including the item count.
func List(c *gin.Context, data interface{}, count int) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

// Created responds with HTTP 201 Created and an optional confirmation message.
func Created(c *gin.Context, data interface{}, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// Message responds 200 with a confirmation message and no data payload.
func Message(c *gin.Context, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr.Message})
}
