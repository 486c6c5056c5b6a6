// Package requestid attaches a correlation id to each HTTP request.
//
// Middleware accepts an inbound X-Request-ID made of letters, digits, dashes
// and underscores (at most 128 bytes) and otherwise generates a UUIDv7. The id
// is echoed in the response header and can be read with FromContext.
// LoggerExtractor plugs it into pkg/logger so every record carries request_id.
package requestid
