// Package server provides HTTP API server for workflow execution.
// It enables programmatic access to the workflow engine with support for:
//   - RESTful API for workflow execution
//   - Health check and readiness endpoints
//   - Prometheus metrics endpoint
//   - Request logging
//   - Graceful shutdown
package server
