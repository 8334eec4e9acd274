// Package logging provides structured logging capabilities for the workflow engine.
//
// # Overview
//
// The logging package implements a structured logging system with support for
// multiple output formats, log levels, contextual information, and integration
// with the workflow execution lifecycle.
//
// # Features
//
//   - Structured logging: JSON and text formats
//   - Log levels: DEBUG, INFO, WARN, ERROR
//   - Context propagation: Execution ID, workflow ID, node ID
//   - Level filtering: messages below Config.Level are dropped
//   - Performance: Minimal overhead for disabled log levels
//   - Thread-safe: Safe for concurrent use
//   - Flexible output: Write to any io.Writer
//
// # Log Levels
//
// The package supports standard log levels:
//
//   - DEBUG: Detailed diagnostic information
//   - INFO: General informational messages
//   - WARN: Warning messages for potential issues
//   - ERROR: Error messages for failures
//
// # Basic Usage
//
//	import "github.com/yesoreyeram/fluxweave/pkg/logging"
//
//	// Create logger (JSON output unless Pretty is set)
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Output: os.Stdout,
//	})
//
//	// Log messages; fields are attached with the With* methods
//	logger.WithFields(map[string]interface{}{
//	    "workflow_id": "wf-123",
//	    "node_count":  42,
//	}).Info("Workflow started")
//
//	logger.WithError(err).WithNodeID("node-5").Error("Execution failed")
//
// # Context Integration
//
// WithContext stores the logger in a context and FromContext retrieves it.
// FromContext returns a logger built from DefaultConfig when the context
// holds none; no fields are read from the context itself:
//
//	ctx = logger.WithExecutionID("exec-456").WithContext(ctx)
//	logging.FromContext(ctx).WithNodeType("http").Info("Node executing")
//
// # Structured Fields
//
// WithWorkflowID, WithExecutionID, WithNodeID, WithNodeType, WithField,
// WithFields and WithError each return a new Logger carrying the added
// fields:
//
//	logger.WithFields(map[string]interface{}{
//	    "method":      "GET",
//	    "url":         "https://api.example.com",
//	    "status":      200,
//	    "duration_ms": 145,
//	}).Info("HTTP request completed")
//
// # Output Formats
//
// JSON format (Pretty false, the default), one object per line:
//
//	{"time":"2024-01-15T10:30:00.000Z","level":"INFO","msg":"Workflow started","workflow_id":"wf-123","execution_id":"exec-456"}
//
// Text format (Pretty true):
//
//	time=2024-01-15T10:30:00.000Z level=INFO msg="Workflow started" workflow_id=wf-123 execution_id=exec-456
//
// # Configuration
//
// Logger configuration options:
//
//	config := logging.Config{
//	    Level:         "debug",   // Minimum level: debug, info, warn (or warning), error; anything else means info
//	    Output:        os.Stdout, // Where to write logs; nil means os.Stdout
//	    Pretty:        false,     // Text output instead of JSON
//	    IncludeCaller: true,      // Include the source location
//	}
//
// # Performance Considerations
//
//   - Messages below the configured level are dropped by the slog handler
//   - The *f methods format their message before the level check
//   - Output is written to Config.Output without buffering
//
// # Common Logging Patterns
//
// Workflow execution:
//
//	logger.WithWorkflowID(workflowID).
//	    WithField("node_count", len(workflow.Nodes)).
//	    Info("Workflow execution started")
//
// Node execution:
//
//	logger.WithNodeID(node.Name).WithNodeType(node.Type).Debug("Node executing")
//
// Error logging:
//
//	logger.WithNodeID(node.Name).
//	    WithError(err).
//	    WithField("retry_count", retries).
//	    Error("Node execution failed")
//
// Performance metrics:
//
//	logger.WithWorkflowID(workflowID).
//	    WithField("duration_ms", elapsed.Milliseconds()).
//	    Infof("Workflow completed, %d nodes executed", count)
//
// # Integration with Observability
//
// This package has no observer of its own. pkg/middleware's
// LoggingMiddleware logs node executions through a *Logger, and
// pkg/observer's ConsoleObserver writes run events through that package's
// own narrow Logger interface.
//
// # Best Practices
//
//   - Use structured fields instead of string formatting
//   - Include execution context (workflow_id, node_id, etc.)
//   - Log at appropriate levels (avoid debug in production)
//   - Add timing information for performance analysis
//   - Include error context (not just error message)
//   - Use consistent field names across the codebase
//
// # Thread Safety
//
// All logger operations are thread-safe and can be used concurrently
// from multiple goroutines without additional synchronization.
//
// # Testing
//
// For testing, use a logger with a buffer:
//
//	buf := &bytes.Buffer{}
//	logger := logging.New(logging.Config{
//	    Level:  "info",
//	    Output: buf,
//	})
//
//	// Execute code
//	// Verify log output
//	if !strings.Contains(buf.String(), "expected message") {
//	    t.Error("expected message not logged")
//	}
package logging
