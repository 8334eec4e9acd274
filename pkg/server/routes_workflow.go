package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/engine"
	"github.com/yesoreyeram/fluxweave/pkg/graph"
	"github.com/yesoreyeram/fluxweave/pkg/observer"
	"github.com/yesoreyeram/fluxweave/pkg/storage"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// workflowBody is the graph portion of a stored workflow record — the part
// that round-trips through storage.Workflow.Data, kept opaque to the store
// itself (spec §6's persisted record shape).
type workflowBody struct {
	Nodes       []types.Node       `json:"nodes"`
	Connections []types.Connection `json:"connections"`
}

// WorkflowRecord is the full persisted workflow shape spec §6 names:
// {id, name, active, nodes, connections, createdAt, updatedAt}.
type WorkflowRecord struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Active      bool               `json:"active"`
	Nodes       []types.Node       `json:"nodes"`
	Connections []types.Connection `json:"connections"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func recordFromStored(wf *storage.Workflow) (*WorkflowRecord, error) {
	var body workflowBody
	if err := json.Unmarshal(wf.Data, &body); err != nil {
		return nil, fmt.Errorf("stored workflow data is corrupt: %w", err)
	}
	return &WorkflowRecord{
		ID:          wf.ID,
		Name:        wf.Name,
		Active:      wf.Active,
		Nodes:       body.Nodes,
		Connections: body.Connections,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}, nil
}

func (r *WorkflowRecord) toWorkflow() *types.Workflow {
	return &types.Workflow{ID: r.ID, Name: r.Name, Nodes: r.Nodes, Connections: r.Connections}
}

// saveWorkflowRequest is the CRUD request body for creating/updating a workflow.
type saveWorkflowRequest struct {
	Name        string             `json:"name"`
	Active      bool               `json:"active"`
	Nodes       []types.Node       `json:"nodes"`
	Connections []types.Connection `json:"connections"`
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest, err)
		return nil, false
	}
	return body, true
}

// handleListWorkflows handles GET /workflows
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"workflows": s.store.List(),
	})
}

// handleCreateWorkflow handles POST /workflows
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req saveWorkflowRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}

	wf := &types.Workflow{Name: req.Name, Nodes: req.Nodes, Connections: req.Connections}
	if err := s.engine.Validate(wf); err != nil {
		s.writeErrorResponse(w, "Invalid workflow", http.StatusBadRequest, err)
		return
	}

	data, err := json.Marshal(workflowBody{Nodes: req.Nodes, Connections: req.Connections})
	if err != nil {
		s.writeErrorResponse(w, "Failed to encode workflow", http.StatusInternalServerError, err)
		return
	}

	id, err := s.store.Save(req.Name, "", req.Active, data)
	if err != nil {
		s.writeErrorResponse(w, "Failed to save workflow", http.StatusBadRequest, err)
		return
	}

	stored, err := s.store.Load(id)
	if err != nil {
		s.writeErrorResponse(w, "Failed to reload saved workflow", http.StatusInternalServerError, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode saved workflow", http.StatusInternalServerError, err)
		return
	}

	s.logger.WithField("id", id).WithField("name", req.Name).Info("workflow created")
	s.writeJSONResponse(w, http.StatusCreated, record)
}

// handleGetWorkflow handles GET /workflows/{id}
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stored, err := s.store.Load(id)
	if err != nil {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode workflow", http.StatusInternalServerError, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, record)
}

// handleUpdateWorkflow handles PUT /workflows/{id}
func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req saveWorkflowRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}

	wf := &types.Workflow{ID: id, Name: req.Name, Nodes: req.Nodes, Connections: req.Connections}
	if err := s.engine.Validate(wf); err != nil {
		s.writeErrorResponse(w, "Invalid workflow", http.StatusBadRequest, err)
		return
	}

	data, err := json.Marshal(workflowBody{Nodes: req.Nodes, Connections: req.Connections})
	if err != nil {
		s.writeErrorResponse(w, "Failed to encode workflow", http.StatusInternalServerError, err)
		return
	}

	if err := s.store.Update(id, req.Name, "", req.Active, data); err != nil {
		s.writeErrorResponse(w, "Failed to update workflow", http.StatusNotFound, err)
		return
	}

	stored, err := s.store.Load(id)
	if err != nil {
		s.writeErrorResponse(w, "Failed to reload workflow", http.StatusInternalServerError, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode workflow", http.StatusInternalServerError, err)
		return
	}

	s.logger.WithField("id", id).Info("workflow updated")
	s.writeJSONResponse(w, http.StatusOK, record)
}

// handleDeleteWorkflow handles DELETE /workflows/{id}
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.Delete(id); err != nil {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, err)
		return
	}

	s.mu.Lock()
	delete(s.errorWorkflows, id)
	s.mu.Unlock()

	s.logger.WithField("id", id).Info("workflow deleted")
	w.WriteHeader(http.StatusNoContent)
}

// runRequest is the request body accepted by the run and execution-stream endpoints.
type runRequest struct {
	StartNode    string              `json:"startNode"`
	InitialItems types.Items         `json:"initialItems,omitempty"`
	Mode         types.ExecutionMode `json:"mode,omitempty"`
}

// adhocRunRequest additionally carries the unsaved workflow definition.
type adhocRunRequest struct {
	runRequest
	Name        string             `json:"name"`
	Nodes       []types.Node       `json:"nodes"`
	Connections []types.Connection `json:"connections"`
}

// executionResponse mirrors spec §6's Execution record shape.
type executionResponse struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflowId,omitempty"`
	WorkflowName string                 `json:"workflowName,omitempty"`
	Status       string                 `json:"status"`
	Mode         types.ExecutionMode    `json:"mode"`
	StartTime    time.Time              `json:"startTime"`
	EndTime      time.Time              `json:"endTime"`
	Errors       []types.ErrorRecord    `json:"errors"`
	NodeData     map[string]types.Items `json:"nodeData"`
}

func toExecutionResponse(workflowID, workflowName string, result *engine.RunResult) executionResponse {
	return executionResponse{
		ID:           result.ExecutionID,
		WorkflowID:   workflowID,
		WorkflowName: workflowName,
		Status:       result.Status,
		Mode:         result.Mode,
		StartTime:    result.StartTime,
		EndTime:      result.EndTime,
		Errors:       result.Errors,
		NodeData:     result.NodeData,
	}
}

func defaultRunMode(mode types.ExecutionMode) types.ExecutionMode {
	if mode == "" {
		return types.ModeManual
	}
	return mode
}

// handleRunWorkflow handles POST /workflows/{id}/run
func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stored, err := s.store.Load(id)
	if err != nil {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode workflow", http.StatusInternalServerError, err)
		return
	}

	var req runRequest
	if body, ok := s.readBody(w, r); ok && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
			return
		}
	}

	wf := record.toWorkflow()
	result, err := s.engine.Run(r.Context(), wf, req.StartNode, req.InitialItems, defaultRunMode(req.Mode), nil)
	if err != nil {
		s.writeErrorResponse(w, "Workflow execution failed", http.StatusInternalServerError, err)
		return
	}

	s.afterRun(id, record.Name, result)
	s.writeJSONResponse(w, http.StatusOK, toExecutionResponse(id, record.Name, result))
}

// handleRunAdhoc handles POST /workflows/run-adhoc
func (s *Server) handleRunAdhoc(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req adhocRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}

	wf := &types.Workflow{Name: req.Name, Nodes: req.Nodes, Connections: req.Connections}
	result, err := s.engine.Run(r.Context(), wf, req.StartNode, req.InitialItems, defaultRunMode(req.Mode), nil)
	if err != nil {
		s.writeErrorResponse(w, "Workflow execution failed", http.StatusInternalServerError, err)
		return
	}

	s.afterRun("", req.Name, result)
	s.writeJSONResponse(w, http.StatusOK, toExecutionResponse("", req.Name, result))
}

// afterRun invokes the registered error-handler workflow, if any, when the
// just-finished run recorded errors (spec §7's error-handler workflows).
func (s *Server) afterRun(workflowID, workflowName string, result *engine.RunResult) {
	if workflowID == "" || len(result.Errors) == 0 {
		return
	}

	s.mu.RLock()
	handlerID, ok := s.errorWorkflows[workflowID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	go s.triggerErrorWorkflow(handlerID, workflowID, workflowName, result)
}

func (s *Server) triggerErrorWorkflow(handlerID, failedWorkflowID, failedWorkflowName string, result *engine.RunResult) {
	stored, err := s.store.Load(handlerID)
	if err != nil {
		s.logger.WithError(err).WithField("handler_id", handlerID).Warn("error-handler workflow not found")
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.logger.WithError(err).WithField("handler_id", handlerID).Warn("error-handler workflow is corrupt")
		return
	}

	payload := map[string]interface{}{
		"workflowId":   failedWorkflowID,
		"workflowName": failedWorkflowName,
		"executionId":  result.ExecutionID,
		"errors":       result.Errors,
	}

	startNode := firstNodeOfType(record.Nodes, "errortrigger")
	if startNode == "" {
		s.logger.WithField("handler_id", handlerID).Warn("error-handler workflow has no ErrorTrigger node")
		return
	}

	_, err = s.engine.Run(context.Background(), record.toWorkflow(), startNode, types.Items{types.NewItem(payload)}, types.ModeManual, nil)
	if err != nil {
		s.logger.WithError(err).WithField("handler_id", handlerID).Error("error-handler workflow run failed")
	}
}

func firstNodeOfType(nodes []types.Node, nodeType string) string {
	for _, n := range nodes {
		if strings.EqualFold(n.Type, nodeType) {
			return n.Name
		}
	}
	return ""
}

// sseEvent is the wire shape of one SSE line, following spec §6: ISO-8601
// timestamps and an error message string rather than an opaque error value.
type sseEvent struct {
	Type        observer.EventType `json:"type"`
	ExecutionID string             `json:"executionId"`
	Timestamp   string             `json:"timestamp"`
	NodeName    string             `json:"nodeName,omitempty"`
	NodeType    string             `json:"nodeType,omitempty"`
	Progress    observer.Progress  `json:"progress,omitempty"`
	Data        interface{}        `json:"data,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func eventToSSE(event observer.Event) sseEvent {
	e := sseEvent{
		Type:        event.Type,
		ExecutionID: event.ExecutionID,
		Timestamp:   event.Timestamp.Format(time.RFC3339),
		NodeName:    event.NodeName,
		NodeType:    event.NodeType,
		Progress:    event.Progress,
		Data:        event.Data,
	}
	if event.Error != nil {
		e.Error = event.Error.Error()
	}
	return e
}

// sseObserver streams every lifecycle event straight to an http.ResponseWriter.
type sseObserver struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

func (o *sseObserver) OnEvent(ctx context.Context, event observer.Event) {
	o.write(eventToSSE(event))
}

func (o *sseObserver) write(e sseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(o.w, "data: %s\n\n", payload)
	o.flusher.Flush()
}

func newSSEObserver(w http.ResponseWriter) (*sseObserver, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseObserver{w: w, flusher: flusher}, true
}

// streamRun runs wf to completion, streaming every lifecycle event as SSE,
// then emits a final execution:result event with the full nodeData map and
// errors (spec §6's SSE wire format).
func (s *Server) streamRun(w http.ResponseWriter, r *http.Request, workflowID, workflowName string, wf *types.Workflow, req runRequest) {
	sse, ok := newSSEObserver(w)
	if !ok {
		s.writeErrorResponse(w, "Streaming unsupported", http.StatusInternalServerError, fmt.Errorf("response writer does not support flushing"))
		return
	}

	result, err := s.engine.Run(r.Context(), wf, req.StartNode, req.InitialItems, defaultRunMode(req.Mode), sse)
	if err != nil {
		sse.write(sseEvent{
			Type:        observer.EventExecutionError,
			ExecutionID: "",
			Timestamp:   time.Now().Format(time.RFC3339),
			Error:       err.Error(),
		})
		return
	}

	s.afterRun(workflowID, workflowName, result)

	sse.write(sseEvent{
		Type:        "execution:result",
		ExecutionID: result.ExecutionID,
		Timestamp:   time.Now().Format(time.RFC3339),
		Data: map[string]interface{}{
			"nodeData": result.NodeData,
			"errors":   result.Errors,
		},
	})
}

// handleExecutionStreamByID handles GET /execution-stream/{id}
func (s *Server) handleExecutionStreamByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stored, err := s.store.Load(id)
	if err != nil {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode workflow", http.StatusInternalServerError, err)
		return
	}

	req := runRequest{StartNode: r.URL.Query().Get("startNode"), Mode: types.ExecutionMode(r.URL.Query().Get("mode"))}
	s.streamRun(w, r, id, record.Name, record.toWorkflow(), req)
}

// handleExecutionStreamAdhoc handles POST /execution-stream/adhoc
func (s *Server) handleExecutionStreamAdhoc(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req adhocRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}

	wf := &types.Workflow{Name: req.Name, Nodes: req.Nodes, Connections: req.Connections}
	s.streamRun(w, r, "", req.Name, wf, req.runRequest)
}

// handleWebhook handles GET/POST/PUT/DELETE /webhook/{workflowId} (spec §6).
// The workflow's entry point is its Webhook trigger node; the request method
// and parsed body become the triggering item.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	workflowID := r.PathValue("workflowId")

	stored, err := s.store.Load(workflowID)
	if err != nil {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, err)
		return
	}
	record, err := recordFromStored(stored)
	if err != nil {
		s.writeErrorResponse(w, "Failed to decode workflow", http.StatusInternalServerError, err)
		return
	}
	if !stored.Active {
		s.writeErrorResponse(w, "Workflow is not active", http.StatusNotFound, fmt.Errorf("workflow %s is inactive", workflowID))
		return
	}

	startNode := firstNodeOfType(record.Nodes, "webhook")
	if startNode == "" {
		s.writeErrorResponse(w, "Workflow has no Webhook trigger node", http.StatusBadRequest, nil)
		return
	}

	item := webhookTriggerItem(r)
	wf := record.toWorkflow()

	result, err := s.engine.Run(r.Context(), wf, startNode, types.Items{item}, types.ModeWebhook, nil)
	if err != nil {
		s.writeErrorResponse(w, "Webhook delivery failed", http.StatusInternalServerError, err)
		return
	}
	s.afterRun(workflowID, record.Name, result)

	if r.URL.Query().Get("responseMode") == "lastNode" {
		s.writeWebhookLastNodeResponse(w, wf, result)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"executionId": result.ExecutionID,
	})
}

func webhookTriggerItem(r *http.Request) types.Item {
	payload := map[string]interface{}{
		"method": r.Method,
		"query":  r.URL.Query(),
	}

	headers := map[string]string{}
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	payload["headers"] = headers

	body, err := io.ReadAll(io.LimitReader(r.Body, 10*1024*1024))
	if err == nil && len(body) > 0 {
		var parsed interface{}
		if json.Unmarshal(body, &parsed) == nil {
			payload["body"] = parsed
		} else {
			payload["body"] = string(body)
		}
	}

	return types.NewItem(payload)
}

// writeWebhookLastNodeResponse writes the last entry of a terminal node's
// main output items, per spec §6's "lastNode" response mode. Terminal nodes
// (no outgoing connections) are found via graph.TerminalNodes rather than
// scanning every node that happened to produce data, both because that is
// what "last node" means in a workflow and because it makes the choice
// deterministic instead of depending on map iteration order.
func (s *Server) writeWebhookLastNodeResponse(w http.ResponseWriter, wf *types.Workflow, result *engine.RunResult) {
	var lastItems types.Items
	found := false
	for _, name := range graph.TerminalNodes(wf) {
		if items, ok := result.NodeData[name]; ok && len(items) > 0 {
			lastItems = items
			found = true
		}
	}
	if !found {
		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{})
		return
	}
	s.writeJSONResponse(w, http.StatusOK, lastItems[len(lastItems)-1].JSON)
}

// setErrorHandlerRequest is the body of PUT /workflows/{id}/error-handler.
type setErrorHandlerRequest struct {
	ErrorWorkflowID string `json:"errorWorkflowId"`
}

// handleSetErrorHandler handles PUT /workflows/{id}/error-handler, wiring a
// failing workflow's id to another workflow starting with an ErrorTrigger
// node (spec §7's error-handler workflows).
func (s *Server) handleSetErrorHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.store.Exists(id) {
		s.writeErrorResponse(w, "Workflow not found", http.StatusNotFound, nil)
		return
	}

	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var req setErrorHandlerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}
	if !s.store.Exists(req.ErrorWorkflowID) {
		s.writeErrorResponse(w, "Error-handler workflow not found", http.StatusBadRequest, nil)
		return
	}

	s.mu.Lock()
	s.errorWorkflows[id] = req.ErrorWorkflowID
	s.mu.Unlock()

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"success": true})
}

// nodeDescriptorResponse is one entry in the GET /nodes catalog.
type nodeDescriptorResponse struct {
	Type            string   `json:"type"`
	DisplayName     string   `json:"displayName"`
	InputCount      int      `json:"inputCount"`
	OutputPorts     []string `json:"outputPorts"`
	ParameterSchema string   `json:"parameterSchema,omitempty"`
}

// handleListNodes handles GET /nodes
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	registered := s.nodeRegistry.ListRegisteredTypes()
	descriptors := make([]nodeDescriptorResponse, 0, len(registered))
	for _, t := range registered {
		d, ok := s.nodeRegistry.Descriptor(t)
		if !ok {
			continue
		}
		descriptors = append(descriptors, nodeDescriptorResponse{
			Type:            d.Type,
			DisplayName:     d.DisplayName,
			InputCount:      d.InputCount,
			OutputPorts:     d.OutputPorts,
			ParameterSchema: d.ParameterSchema,
		})
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"nodes": descriptors})
}
