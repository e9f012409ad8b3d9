// Copyright (C) 2026 StackDash Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the dashboard service.
//
// # Request ID Flow
//
// The request-ID middleware picks up an inbound X-Request-ID header (so
// identifiers survive proxies and the dashboard CLI), or generates a new
// UUID when absent, then stores it in the Gin context and echoes it back
// on the response.
//
//	Request
//	   │
//	   ▼
//	RequestID
//	   │
//	   ├─► Reuse "X-Request-ID" header or generate a UUID
//	   │
//	   └─► Store ID in context, set response header
//	           │
//	           ▼
//	       Handler (retrieves via GetRequestID)
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request identifier.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the context key for storing the request ID.
// Using a typed key prevents collisions with other context values.
const requestIDKey = "stackdash_request_id"

// GetRequestID retrieves the request ID from the Gin context.
//
// # Description
//
// Called by handlers and log statements to correlate work with a request.
// Returns empty string if RequestID middleware did not run.
//
// # Inputs
//
//   - c: Gin context. Must not be nil.
//
// # Outputs
//
//   - string: The request ID, or "" if not set
//
// # Thread Safety
//
// Safe to call concurrently (Gin context is request-scoped).
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(requestIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// RequestID creates a Gin middleware that assigns every request an ID.
//
// # Description
//
// Reuses the inbound X-Request-ID header when present, otherwise
// generates a fresh UUIDv4. The ID is stored in the Gin context for
// downstream handlers and set on the response so clients can report it.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
//
// # Examples
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
//
// # Limitations
//
//   - Inbound IDs are trusted as-is; no format validation is performed.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}
