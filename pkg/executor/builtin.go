package executor

import "github.com/yesoreyeram/fluxweave/pkg/httpnode"

// NewBuiltinRegistry constructs a Registry preloaded with every node type
// spec.md §4.D names. httpClients may be nil, in which case the HTTP node
// falls back to its own pooled default client for every request.
func NewBuiltinRegistry(httpClients *httpnode.Registry) *Registry {
	registry := NewRegistry()

	registry.MustRegister(NewTriggerExecutor("start"))
	registry.MustRegister(NewTriggerExecutor("webhook"))
	registry.MustRegister(NewTriggerExecutor("cron"))
	registry.MustRegister(NewTriggerExecutor("errorTrigger"))

	registry.MustRegister(NewSetExecutor())
	registry.MustRegister(NewIfExecutor())
	registry.MustRegister(NewSwitchExecutor())
	registry.MustRegister(NewMergeExecutor())
	registry.MustRegister(NewSplitInBatchesExecutor())
	registry.MustRegister(NewWaitExecutor())
	registry.MustRegister(NewHTTPExecutor(httpClients))
	registry.MustRegister(NewCodeExecutor())
	registry.MustRegister(NewLLMChatExecutor())
	registry.MustRegister(NewAIAgentExecutor())

	return registry
}
