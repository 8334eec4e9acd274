// Command fluxweaved starts the fluxweave workflow engine HTTP API server.
//
// Usage:
//
//	fluxweaved [flags]
//
// Flags:
//
//	-addr string
//	    Server address (default ":8080")
//	-read-timeout duration
//	    HTTP read timeout (default 30s)
//	-write-timeout duration
//	    HTTP write timeout (default 30s)
//	-max-execution-time duration
//	    Maximum workflow execution time (default 1m)
//	-max-node-executions int
//	    Maximum node executions per workflow (default 10000)
//	-max-http-calls int
//	    Maximum HTTP calls per execution (default 100)
//	-max-loop-iterations int
//	    Maximum loop iterations (default 10000)
//
// Example:
//
//	# Start server on default port
//	fluxweaved
//
//	# Start server on custom port with strict limits
//	fluxweaved -addr :9090 -max-execution-time 30s -max-node-executions 1000
//
// The server exposes the following endpoints:
//
//	GET    /workflows                        - List workflow records
//	POST   /workflows                        - Create a workflow
//	GET    /workflows/{id}                   - Load a workflow by id
//	PUT    /workflows/{id}                   - Update a workflow
//	DELETE /workflows/{id}                   - Delete a workflow
//	POST   /workflows/{id}/run               - Run a saved workflow
//	POST   /workflows/run-adhoc              - Run an unsaved workflow
//	GET    /execution-stream/{id}            - SSE stream for a saved run
//	POST   /execution-stream/adhoc           - SSE stream for an ad-hoc run
//	*      /webhook/{workflowId}             - Deliver an external event
//	PUT    /workflows/{id}/error-handler     - Wire an error-handler workflow
//	GET    /nodes                            - List registered node types
//	POST   /api/v1/httpclient/register       - Register a named HTTP client
//	GET    /api/v1/httpclient/list           - List registered HTTP clients
//	POST   /api/v1/playground/execute        - Execute an ad-hoc HTTP call
//	GET    /health                           - Health check
//	GET    /health/live                      - Liveness probe
//	GET    /health/ready                     - Readiness probe
//	GET    /metrics                          - Prometheus metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/config"
	"github.com/yesoreyeram/fluxweave/pkg/server"
)

func main() {
	addr := flag.String("addr", ":8080", "Server address")
	readTimeout := flag.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	maxExecutionTime := flag.Duration("max-execution-time", 1*time.Minute, "Maximum workflow execution time")
	maxNodeExecutions := flag.Int("max-node-executions", 10000, "Maximum node executions per workflow")
	maxHTTPCalls := flag.Int("max-http-calls", 100, "Maximum HTTP calls per execution")
	maxLoopIterations := flag.Int("max-loop-iterations", 10000, "Maximum loop iterations")
	allowHTTP := flag.Bool("allow-http", true, "Allow the HTTP node to make outbound requests")

	flag.Parse()

	serverConfig := server.Config{
		Address:            *addr,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		EnableCORS:         true,
	}

	engineConfig := config.Default()
	engineConfig.AllowHTTP = *allowHTTP
	engineConfig.MaxExecutionTime = *maxExecutionTime
	engineConfig.MaxNodeExecutions = *maxNodeExecutions
	engineConfig.MaxHTTPCallsPerExec = *maxHTTPCalls
	engineConfig.MaxIterations = *maxLoopIterations

	srv, err := server.New(serverConfig, engineConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Starting fluxweave workflow engine server on %s\n", *addr)
		fmt.Printf("Health check:     http://localhost%s/health\n", *addr)
		fmt.Printf("Liveness probe:   http://localhost%s/health/live\n", *addr)
		fmt.Printf("Readiness probe:  http://localhost%s/health/ready\n", *addr)
		fmt.Printf("Metrics:          http://localhost%s/metrics\n", *addr)
		fmt.Printf("Workflows:        http://localhost%s/workflows\n", *addr)
		fmt.Println("\nPress Ctrl+C to shutdown")

		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)
		fmt.Println("Shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Server stopped")
	}
}
