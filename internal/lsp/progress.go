package lsp

import (
	"sync"
)

// ProgressReporter sends work done progress for long-running commands.
type ProgressReporter struct {
	send func(msg jsonRPCMessage) error
	mu   sync.Mutex
}

func NewProgressReporter(send func(msg jsonRPCMessage) error) *ProgressReporter {
	return &ProgressReporter{send: send}
}

// Begin asks the client to create token and starts reporting under it.
func (p *ProgressReporter) Begin(token, title string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	params, err := marshalParams(WorkDoneProgressCreateParams{Token: token})
	if err != nil {
		return err
	}
	if err := p.send(jsonRPCMessage{
		JSONRPC: "2.0",
		ID:      "progress-create-" + token,
		Method:  MethodWindowWorkDoneProgressCreate,
		Params:  params,
	}); err != nil {
		return err
	}
	zero := 0
	return p.notify(token, WorkDoneProgress{Kind: "begin", Title: title, Percentage: &zero})
}

// Report sends an intermediate message with done out of total completed.
func (p *ProgressReporter) Report(token, message string, done, total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := WorkDoneProgress{Kind: "report", Message: message}
	if total > 0 {
		pct := done * 100 / total
		v.Percentage = &pct
	}
	return p.notify(token, v)
}

func (p *ProgressReporter) End(token, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notify(token, WorkDoneProgress{Kind: "end", Message: message})
}

func (p *ProgressReporter) notify(token string, value WorkDoneProgress) error {
	params, err := marshalParams(ProgressParams{Token: token, Value: value})
	if err != nil {
		return err
	}
	return p.send(jsonRPCMessage{JSONRPC: "2.0", Method: MethodProgress, Params: params})
}
