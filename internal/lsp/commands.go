package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// CommandResult is the response to workspace/executeCommand.
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// CommandHandler handles workspace/executeCommand requests
type CommandHandler struct {
	server *Server
}

func NewCommandHandler(server *Server) *CommandHandler {
	return &CommandHandler{server: server}
}

// Execute runs a command. Unknown commands are an error; a command that
// cannot run with the given arguments reports Success false.
func (h *CommandHandler) Execute(ctx context.Context, params ExecuteCommandParams) (*CommandResult, error) {
	switch params.Command {
	case CommandAnalyzeFile:
		return h.analyzeFile(ctx, params.Arguments)
	case CommandAnalyzeWorkspace:
		return h.analyzeWorkspace(ctx)
	case CommandClearCache:
		return h.clearCache(ctx)
	default:
		return nil, fmt.Errorf("unknown command: %s", params.Command)
	}
}

// analyzeFile re-analyzes one open document immediately.
func (h *CommandHandler) analyzeFile(ctx context.Context, args []any) (*CommandResult, error) {
	if len(args) < 1 {
		return &CommandResult{Message: "file URI argument required"}, nil
	}
	uri, ok := args[0].(string)
	if !ok {
		return &CommandResult{Message: "file URI must be a string"}, nil
	}
	content, ok := h.server.document(uri)
	if !ok {
		return &CommandResult{Message: fmt.Sprintf("document not open: %s", uri)}, nil
	}

	log := h.server.analyzeAndPublish(ctx, uri, content)
	if log == nil {
		return &CommandResult{Message: fmt.Sprintf("analysis failed for %s", uri)}, nil
	}
	return &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Analyzed %s", uri),
		Data:    log.CountByLevel(),
	}, nil
}

// analyzeWorkspace analyzes every open document in URI order and reports
// progress.
func (h *CommandHandler) analyzeWorkspace(ctx context.Context) (*CommandResult, error) {
	docs := h.server.openDocuments()
	if len(docs) == 0 {
		return &CommandResult{Success: true, Message: "No documents open to analyze"}, nil
	}
	uris := make([]string, 0, len(docs))
	for uri := range docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	const token = "sharplint-workspace-analysis"
	progress := h.server.progress
	if err := progress.Begin(token, "Analyzing open documents"); err != nil {
		slog.Debug("progress unavailable", "err", err)
	}

	counts := make(map[string]int)
	analyzed := 0
	for _, uri := range uris {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if log := h.server.analyzeAndPublish(ctx, uri, docs[uri]); log != nil {
			analyzed++
			for level, n := range log.CountByLevel() {
				counts[level] += n
			}
		}
		_ = progress.Report(token, fmt.Sprintf("Analyzed %d/%d files", analyzed, len(uris)), analyzed, len(uris))
	}
	_ = progress.End(token, fmt.Sprintf("Analyzed %d files", analyzed))

	return &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Analyzed %d files", analyzed),
		Data:    map[string]any{"filesAnalyzed": analyzed, "results": counts},
	}, nil
}

func (h *CommandHandler) clearCache(ctx context.Context) (*CommandResult, error) {
	if h.server.clearer == nil {
		return &CommandResult{Message: "Cache not configured"}, nil
	}
	n, err := h.server.clearer.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("clearing cache: %w", err)
	}

	return &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Cache cleared (%d entries)", n),
	}, nil
}
