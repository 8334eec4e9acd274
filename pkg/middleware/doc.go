// Package middleware provides request/response middleware for the workflow engine.
//
// # Overview
//
// The middleware package implements a chain of responsibility around a
// single node execution: each Middleware receives the node, its input items
// and the next Handler, and can act before and after calling next, or
// return without calling it. There is no workflow-level middleware.
//
// # Features
//
//   - Node middleware: Intercept individual node execution
//   - Chain composition: Stack multiple middleware
//   - Order control: Middleware run in the order they are added
//   - Error handling: Intercept and transform errors
//
// # Middleware Interface
//
//	type Handler func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error)
//
//	type Middleware interface {
//	    Process(ctx executor.ExecutionContext, node types.Node, input types.Items, next Handler) (executor.Result, error)
//	    Name() string
//	}
//
// # Basic Usage
//
//	import "github.com/yesoreyeram/fluxweave/pkg/middleware"
//
//	chain := middleware.NewChain().
//	    Use(middleware.NewLoggingMiddleware(logger)).
//	    Use(middleware.NewMetricsMiddleware(metricsCollector))
//
//	result, err := chain.Execute(ctx, node, input, handler)
//
// # Custom Middleware Example
//
//	type InputCheckMiddleware struct{}
//
//	func (m *InputCheckMiddleware) Process(ctx executor.ExecutionContext, node types.Node, input types.Items, next Handler) (executor.Result, error) {
//	    // Validate inputs before execution
//	    if err := validateInputs(input); err != nil {
//	        return nil, err
//	    }
//	    return next(ctx, node, input)
//	}
//
//	func (m *InputCheckMiddleware) Name() string { return "InputCheck" }
//
// # Built-in Middleware
//
// LoggingMiddleware:
//   - Logs node start and completion at debug level, failures at error level
//
// MetricsMiddleware:
//   - Reports each execution to a MetricsCollector
//   - Reports each failure with its error message
//
// RetryMiddleware, ConditionalRetryMiddleware:
//   - Retry a failed execution with exponential backoff, capped at MaxBackoff
//   - The conditional variant retries only errors whose message contains one
//     of the configured substrings
//
// TimeoutMiddleware, TimeoutMiddlewareWithContext:
//   - Return a timeout error when the node has not finished in time
//   - The node's goroutine is not stopped
//
// ValidationMiddleware, InputValidationMiddleware:
//   - Run a Validate(node) check, or reject more than 100 input items,
//     before execution
//
// RateLimitMiddleware:
//   - Token-bucket limits, global and per node type
//
// SizeLimitMiddleware:
//   - Limits on input and result size, string length and array length
//
// # Middleware Chain
//
// Middleware run in the order they were added with Use: the first added
// runs first on the way in and last on the way out:
//
//	Chain: Use(M1), Use(M2), Use(M3)
//
//	M1(pre) → M2(pre) → M3(pre) → handler → M3(post) → M2(post) → M1(post)
//
// # Error Handling
//
// Middleware can intercept and transform errors:
//
//	func (m *ErrorMiddleware) Process(ctx executor.ExecutionContext, node types.Node, input types.Items, next Handler) (executor.Result, error) {
//	    result, err := next(ctx, node, input)
//	    if err != nil {
//	        // Log error
//	        logger.WithError(err).Error("Node failed")
//	        // Transform error
//	        return nil, fmt.Errorf("node %s failed: %w", node.Name, err)
//	    }
//	    return result, nil
//	}
//
// # Performance Considerations
//
//   - Minimize allocations in hot paths
//   - Use context for request-scoped data
//   - Avoid blocking operations in middleware
//   - Consider middleware overhead for high-throughput scenarios
//
// # Use Cases
//
//   - Authentication and authorization
//   - Request/response logging
//   - Metrics collection and monitoring
//   - Caching and memoization
//   - Rate limiting and throttling
//   - Input validation and sanitization
//   - Error handling and recovery
//   - Request tracing and correlation
//
// # Best Practices
//
//   - Keep middleware focused on a single concern
//   - Avoid modifying workflow/node state in middleware
//   - Use context for passing request-scoped data
//   - Always call next() unless explicitly stopping the chain
//   - Handle errors appropriately (wrap, transform, or log)
//   - Document middleware ordering requirements
//
// # Thread Safety
//
// Middleware implementations should be stateless and thread-safe.
// The same middleware instance may be used concurrently by multiple
// goroutines.
package middleware
