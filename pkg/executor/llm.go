package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// llmCaller is the shared shape both LLM node types use: build a request
// body from resolved parameters, POST it to a configurable endpoint with an
// API key pulled from the environment, and emit one {statusCode, headers,
// body} item per input item, body being the decoded JSON response. Per
// spec.md §4.D these nodes carry no
// special contract beyond NodeExecutor — they are plain HTTP calls that
// happen to default to a specific provider.
type llmCaller struct {
	nodeType         string
	displayName      string
	defaultModel     string
	apiKeyEnv        string
	buildRequestBody func(params map[string]interface{}) (interface{}, error)
}

func (e *llmCaller) NodeType() string { return e.nodeType }

func (e *llmCaller) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        e.nodeType,
		DisplayName: e.displayName,
		InputCount:  1,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *llmCaller) Validate(node types.Node) error {
	prompt, _ := node.Parameters["prompt"].(string)
	if prompt == "" {
		return fmt.Errorf("%s node %q missing prompt parameter", e.nodeType, node.Name)
	}
	return nil
}

func (e *llmCaller) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	config := ctx.Config()
	if !config.AllowHTTP {
		return nil, fmt.Errorf("%s node %q requires HTTP access (AllowHTTP=false)", e.nodeType, node.Name)
	}

	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	out := make(types.Items, 0, len(items))
	for i, item := range items {
		params := ctx.ResolveParameters(node.Parameters, item, i)

		apiKey := asString(params["apiKey"], os.Getenv(e.apiKeyEnv))
		if apiKey == "" {
			return nil, fmt.Errorf("%s node %q: no API key (set %s or the apiKey parameter)", e.nodeType, node.Name, e.apiKeyEnv)
		}
		endpoint := asString(params["endpoint"], "")
		if endpoint == "" {
			model := asString(params["model"], e.defaultModel)
			endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
		}

		payload, err := e.buildRequestBody(params)
		if err != nil {
			return nil, fmt.Errorf("%s node %q: %w", e.nodeType, node.Name, err)
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s node %q: encoding request: %w", e.nodeType, node.Name, err)
		}

		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%s node %q: building request: %w", e.nodeType, node.Name, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", apiKey)
		req.Header.Set("Authorization", "Bearer "+apiKey)

		client := &http.Client{Timeout: time.Duration(config.HTTPTimeout)}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s node %q: request failed: %w", e.nodeType, node.Name, err)
		}

		respItem, err := decodeResponse(resp, "json", config.MaxResponseSize)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s node %q: %w", e.nodeType, node.Name, err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s node %q: provider returned status %d", e.nodeType, node.Name, resp.StatusCode)
		}
		out = append(out, respItem)
	}

	return Result{types.DefaultOutput: types.ItemsValue(out)}, nil
}

// NewLLMChatExecutor is a single-turn chat completion call against the
// Google Generative Language API by default (spec.md §6 names
// GOOGLE_AI_API_KEY among the recognized environment variables).
func NewLLMChatExecutor() NodeExecutor {
	return &llmCaller{
		nodeType:        "llmChat",
		displayName:     "LLM Chat",
		defaultModel:    "gemini-1.5-flash",
		apiKeyEnv:       "GOOGLE_AI_API_KEY",
		buildRequestBody: func(params map[string]interface{}) (interface{}, error) {
			prompt, _ := params["prompt"].(string)
			if prompt == "" {
				return nil, fmt.Errorf("missing prompt parameter")
			}
			return map[string]interface{}{
				"contents": []interface{}{
					map[string]interface{}{
						"role":  "user",
						"parts": []interface{}{map[string]interface{}{"text": prompt}},
					},
				},
			}, nil
		},
	}
}

// NewAIAgentExecutor wraps the same provider with a system instruction and
// an optional declared tool list, so a workflow can drive multi-step agent
// prompts without a different transport path than LLMChat.
func NewAIAgentExecutor() NodeExecutor {
	return &llmCaller{
		nodeType:        "aiAgent",
		displayName:     "AI Agent",
		defaultModel:    "gemini-1.5-pro",
		apiKeyEnv:       "GOOGLE_AI_API_KEY",
		buildRequestBody: func(params map[string]interface{}) (interface{}, error) {
			prompt, _ := params["prompt"].(string)
			if prompt == "" {
				return nil, fmt.Errorf("missing prompt parameter")
			}
			body := map[string]interface{}{
				"contents": []interface{}{
					map[string]interface{}{
						"role":  "user",
						"parts": []interface{}{map[string]interface{}{"text": prompt}},
					},
				},
			}
			if system := asString(params["systemPrompt"], ""); system != "" {
				body["systemInstruction"] = map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": system}},
				}
			}
			if tools, ok := params["tools"]; ok {
				body["tools"] = tools
			}
			return body, nil
		},
	}
}
