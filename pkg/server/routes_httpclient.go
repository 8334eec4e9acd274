package server

import (
	"encoding/json"
	"net/http"

	"github.com/yesoreyeram/fluxweave/pkg/httpnode"
)

// registerHTTPClientRequest is the request body for registering a named HTTP
// client that HTTP nodes can reference by name instead of inlining auth and
// transport settings on every node.
type registerHTTPClientRequest struct {
	Config *httpnode.ClientConfig `json:"config"`
}

// registerHTTPClientResponse is the response for registering an HTTP client.
type registerHTTPClientResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// listHTTPClientsResponse is the response for listing HTTP clients.
type listHTTPClientsResponse struct {
	Success bool     `json:"success"`
	Clients []string `json:"clients"`
	Count   int      `json:"count"`
}

func (s *Server) ssrfPolicy() httpnode.SSRFPolicy {
	return httpnode.SSRFPolicy{
		AllowPrivateIPs:    s.engineConfig.AllowPrivateIPs,
		AllowLocalhost:     s.engineConfig.AllowLocalhost,
		AllowLinkLocal:     s.engineConfig.AllowLinkLocal,
		AllowCloudMetadata: s.engineConfig.AllowCloudMetadata,
		AllowedDomains:     s.engineConfig.AllowedDomains,
	}
}

// handleRegisterHTTPClient handles HTTP client registration requests
func (s *Server) handleRegisterHTTPClient(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req registerHTTPClientRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, "Failed to parse request", http.StatusBadRequest, err)
		return
	}

	if req.Config == nil {
		s.writeJSONResponse(w, http.StatusBadRequest, registerHTTPClientResponse{
			Success: false,
			Error:   "config is required",
		})
		return
	}
	if req.Config.Name == "" {
		s.writeJSONResponse(w, http.StatusBadRequest, registerHTTPClientResponse{
			Success: false,
			Error:   "config.name is required",
		})
		return
	}

	client, err := httpnode.Build(req.Config, s.ssrfPolicy())
	if err != nil {
		s.writeJSONResponse(w, http.StatusBadRequest, registerHTTPClientResponse{
			Success: false,
			Error:   "Failed to create HTTP client: " + err.Error(),
		})
		return
	}

	if err := s.httpClients.Register(req.Config.Name, client); err != nil {
		s.writeJSONResponse(w, http.StatusConflict, registerHTTPClientResponse{
			Success: false,
			Error:   "Failed to register HTTP client: " + err.Error(),
		})
		return
	}

	s.logger.WithField("name", req.Config.Name).Info("HTTP client registered")

	s.writeJSONResponse(w, http.StatusCreated, registerHTTPClientResponse{
		Success: true,
		Message: "HTTP client registered successfully",
		Name:    req.Config.Name,
	})
}

// handleListHTTPClients handles listing HTTP clients requests
func (s *Server) handleListHTTPClients(w http.ResponseWriter, r *http.Request) {
	clients := s.httpClients.List()

	s.writeJSONResponse(w, http.StatusOK, listHTTPClientsResponse{
		Success: true,
		Clients: clients,
		Count:   len(clients),
	})
}
