// Package observability builds the structured zap logger shared by every
// component and the HTTP access log middleware.
package observability
