// Package lsp serves sharplint diagnostics to editors over the Language
// Server Protocol on stdio.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

// CacheClearer empties the result cache behind an AnalyzeFunc.
type CacheClearer interface {
	Clear(ctx context.Context) (int, error)
}

// ServerConfig holds configuration for the LSP server
type ServerConfig struct {
	Watcher WatcherConfig
	// Version is reported in serverInfo.
	Version string
}

// Server implements an LSP server
type Server struct {
	reader  *bufio.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex
	analyze AnalyzeFunc

	docMu     sync.RWMutex
	documents map[string]string // URI -> content

	watcher  *DebouncedWatcher
	progress *ProgressReporter
	commands *CommandHandler
	clearer  CacheClearer
	version  string
}

// NewServer creates a server reading requests from reader and writing
// responses and notifications to writer.
func NewServer(reader *bufio.Reader, writer *bufio.Writer, analyze AnalyzeFunc, cfg ServerConfig) (*Server, error) {
	s := &Server{
		reader:    reader,
		writer:    writer,
		analyze:   analyze,
		documents: make(map[string]string),
		version:   cfg.Version,
	}
	s.progress = NewProgressReporter(s.sendMessage)
	s.commands = NewCommandHandler(s)

	w, err := NewDebouncedWatcher(cfg.Watcher, func(uris []string) {
		for _, uri := range uris {
			if content, ok := s.document(uri); ok {
				s.analyzeAndPublish(context.Background(), uri, content)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	s.watcher = w
	return s, nil
}

// SetCacheClearer enables the clear-cache command.
func (s *Server) SetCacheClearer(c CacheClearer) {
	s.clearer = c
}

type jsonRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errExit ends the message loop after an exit notification.
var errExit = errors.New("lsp: exit")

// Run serves messages until the client sends exit, the input ends or ctx is
// done.
func (s *Server) Run(ctx context.Context) error {
	defer s.watcher.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg, err := readMessage(s.reader)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.dispatch(ctx, msg); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			slog.Error("error handling message", "method", msg.Method, "err", err)
		}
	}
}

// readMessage reads one Content-Length framed message. Other headers are
// ignored.
func readMessage(r *bufio.Reader) (*jsonRPCMessage, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if length < 0 {
				continue
			}
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header: %s", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid content length: %s", value)
			}
			length = n
		}
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	var msg jsonRPCMessage
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, fmt.Errorf("parsing JSON-RPC message: %w", err)
	}
	return &msg, nil
}

func (s *Server) dispatch(ctx context.Context, msg *jsonRPCMessage) error {
	switch msg.Method {
	case "":
		// response to a server request such as progress creation
		return nil
	case MethodInitialize:
		return s.handleInitialize(msg.ID, msg.Params)
	case MethodInitialized:
		return nil
	case MethodTextDocumentDidOpen:
		return s.handleDidOpen(msg.Params)
	case MethodTextDocumentDidChange:
		return s.handleDidChange(msg.Params)
	case MethodTextDocumentDidSave:
		return s.handleDidSave(msg.Params)
	case MethodTextDocumentDidClose:
		return s.handleDidClose(msg.Params)
	case MethodWorkspaceExecuteCommand:
		return s.handleExecuteCommand(ctx, msg.ID, msg.Params)
	case MethodWorkspaceDidChangeConfig:
		return s.handleDidChangeConfiguration(msg.Params)
	case MethodShutdown:
		s.watcher.Stop()
		return s.sendResponse(msg.ID, nil)
	case MethodExit:
		return errExit
	default:
		if msg.ID != nil {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found: "+msg.Method)
		}
		slog.Debug("unhandled LSP notification", "method", msg.Method)
		return nil
	}
}

func (s *Server) handleInitialize(id any, params json.RawMessage) error {
	var p InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return s.sendError(id, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	slog.Info("client connected", "root", p.RootURI)

	return s.sendResponse(id, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncFull,
				Save:      true,
			},
			ExecuteCommandProvider: &ExecuteCommandOptions{
				Commands: []string{CommandAnalyzeFile, CommandAnalyzeWorkspace, CommandClearCache},
			},
		},
		ServerInfo: &ServerInfo{Name: "sharplint", Version: s.version},
	})
}

func (s *Server) handleDidOpen(params json.RawMessage) error {
	var p DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	s.track(p.TextDocument.URI, p.TextDocument.Text)
	return nil
}

func (s *Server) handleDidChange(params json.RawMessage) error {
	var p DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	if n := len(p.ContentChanges); n > 0 {
		s.track(p.TextDocument.URI, p.ContentChanges[n-1].Text)
	}
	return nil
}

func (s *Server) handleDidSave(params json.RawMessage) error {
	var p DidSaveTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	uri := p.TextDocument.URI
	if p.Text != nil {
		s.track(uri, *p.Text)
		return nil
	}
	if _, ok := s.document(uri); ok && s.watcher.ShouldWatch(uri) {
		s.watcher.FileChanged(uri)
	}
	return nil
}

func (s *Server) handleDidClose(params json.RawMessage) error {
	var p DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	uri := p.TextDocument.URI

	s.docMu.Lock()
	_, open := s.documents[uri]
	delete(s.documents, uri)
	s.docMu.Unlock()

	if !open {
		return nil
	}
	return s.publishDiagnostics(uri, []Diagnostic{})
}

// track stores the document text and schedules analysis when the document
// is watched.
func (s *Server) track(uri, content string) {
	if !s.watcher.ShouldWatch(uri) {
		return
	}
	s.docMu.Lock()
	s.documents[uri] = content
	s.docMu.Unlock()
	s.watcher.FileChanged(uri)
}

func (s *Server) document(uri string) (string, bool) {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	content, ok := s.documents[uri]
	return content, ok
}

// openDocuments returns a snapshot of the tracked documents.
func (s *Server) openDocuments() map[string]string {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	docs := make(map[string]string, len(s.documents))
	for uri, content := range s.documents {
		docs[uri] = content
	}
	return docs
}

func (s *Server) handleExecuteCommand(ctx context.Context, id any, params json.RawMessage) error {
	var p ExecuteCommandParams
	if err := json.Unmarshal(params, &p); err != nil {
		return s.sendError(id, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	result, err := s.commands.Execute(ctx, p)
	if err != nil {
		return s.sendError(id, codeInternalError, err.Error())
	}
	return s.sendResponse(id, result)
}

func (s *Server) handleDidChangeConfiguration(params json.RawMessage) error {
	var p DidChangeConfigurationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	raw, err := json.Marshal(p.Settings)
	if err != nil {
		return nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if inner, ok := wrapped["sharplint"]; ok {
			raw = inner
		}
	}
	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		slog.Warn("ignoring invalid sharplint settings", "err", err)
		return nil
	}

	var update WatcherConfig
	if settings.Debounce != "" {
		if d, err := time.ParseDuration(settings.Debounce); err == nil {
			update.DebounceDuration = d
		}
	}
	update.ParallelFiles = settings.ParallelFiles
	update.WatchPatterns = settings.Watch
	update.IgnorePatterns = settings.Ignore
	return s.watcher.UpdateConfig(update)
}

// analyzeAndPublish analyzes a document and publishes its diagnostics. An
// analysis error is logged and leaves earlier diagnostics in place.
func (s *Server) analyzeAndPublish(ctx context.Context, uri, content string) *sarif.Log {
	log, err := s.analyze(ctx, uriToPath(uri), content)
	if err != nil {
		slog.Error("analysis failed", "uri", uri, "err", err)
		return nil
	}
	if err := s.publishDiagnostics(uri, LogToDiagnostics(log, uri, content)); err != nil {
		slog.Error("failed to publish diagnostics", "uri", uri, "err", err)
	}
	return log
}

func (s *Server) publishDiagnostics(uri string, diagnostics []Diagnostic) error {
	return s.sendNotification(MethodTextDocumentPublishDiagnostics, PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *Server) sendResponse(id any, result any) error {
	return s.sendMessage(jsonRPCMessage{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id any, code int, message string) error {
	return s.sendMessage(jsonRPCMessage{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

func marshalParams(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling params: %w", err)
	}
	return data, nil
}

func (s *Server) sendNotification(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	return s.sendMessage(jsonRPCMessage{JSONRPC: "2.0", Method: method, Params: raw})
}

// sendMessage writes msg with its Content-Length header. It is safe for
// concurrent use.
func (s *Server) sendMessage(msg jsonRPCMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}

// uriToPath converts a file URI to a filesystem path. Other strings are
// returned unchanged.
func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	p := u.Path
	// file:///C:/src/A.cs
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}
