package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/testwebinoue-debug/sept3/internal/core/domain"
)

// Client-facing messages for the explanatory security stages.
const (
	DoubleSubmitMessage = "この送信は既に処理されているか、無効です。ページを再読み込みしてください。"
	BotScoreMessage     = "ボット対策の検証に失敗しました。ページを再読み込みしてください。"
	SuccessMessage      = "お問い合わせを受け付けました。ご入力いただいたメールアドレスに確認メールをお送りしました。"
)

// DefaultMaxBodyBytes is the request body limit (1 MiB).
const DefaultMaxBodyBytes = 1 << 20

// PipelineConfig holds the switches and limits of the check sequence.
type PipelineConfig struct {
	MaxBodyBytes int64

	Honeypot       bool
	TimestampCheck bool
	MinFillTime    time.Duration
	MaxFillTime    time.Duration

	// BotScore is consulted only when a Verifier is set.
	BotScore BotScorePolicy
}

// PipelineDeps are the collaborators of a Pipeline.
type PipelineDeps struct {
	Store      SessionStore
	Tokens     *TokenIssuer
	Limiter    *RateLimiter
	Validator  *Validator
	Verifier   BotScoreVerifier // nil disables the bot-score stage
	Dispatcher *Dispatcher
	Events     EventRecorder
	Clock      Clock

	// NewSessionID defaults to domain.GenerateSessionID.
	NewSessionID func() (string, error)
}

// Request is one submission as seen by the pipeline.
type Request struct {
	Method    string
	Body      io.Reader
	SessionID string
	Meta      domain.RequestMeta
}

// Outcome is the terminal result of a pipeline run.
type Outcome struct {
	// Rejection is nil when the submission was accepted.
	Rejection *domain.Rejection

	Status  int
	Message string

	// NewSessionID is set when the session was regenerated.
	NewSessionID string

	// BotScore is the bot-score outcome label, empty when skipped.
	BotScore string
}

// Accepted reports whether the submission went through.
func (o *Outcome) Accepted() bool {
	return o.Rejection == nil
}

// exchange carries one request through the stages.
type exchange struct {
	req      *Request
	body     []byte
	sub      domain.Submission
	botScore string
}

type stage struct {
	name domain.Stage
	run  func(ctx context.Context, x *exchange) *domain.Rejection
}

// Pipeline runs the ordered defense checks for a submission.
type Pipeline struct {
	cfg    PipelineConfig
	deps   PipelineDeps
	stages []stage
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig, deps PipelineDeps) *Pipeline {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Events == nil {
		deps.Events = NopRecorder{}
	}
	if deps.NewSessionID == nil {
		deps.NewSessionID = domain.GenerateSessionID
	}

	p := &Pipeline{cfg: cfg, deps: deps}
	p.stages = []stage{
		{domain.StageMethod, p.checkMethod},
		{domain.StageSize, p.checkSize},
		{domain.StageParse, p.checkParse},
		{domain.StageCSRF, p.checkCSRF},
		{domain.StageDoubleSubmit, p.checkDoubleSubmit},
		{domain.StageBotScore, p.checkBotScore},
		{domain.StageHoneypot, p.checkHoneypot},
		{domain.StageTimestamp, p.checkTimestamp},
		{domain.StageRateLimit, p.checkRateLimit},
		{domain.StageFields, p.checkFields},
		{domain.StageContent, p.checkContent},
	}
	return p
}

// Stages returns the stage names in execution order, dispatch excluded.
func (p *Pipeline) Stages() []domain.Stage {
	names := make([]domain.Stage, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Run executes the stages in order, stopping at the first rejection, and
// dispatches the notifications when every stage passes. Every outcome is
// recorded before Run returns.
func (p *Pipeline) Run(ctx context.Context, req *Request) *Outcome {
	x := &exchange{req: req}

	for _, s := range p.stages {
		if r := s.run(ctx, x); r != nil {
			return p.reject(ctx, x, r)
		}
	}

	if err := p.deps.Dispatcher.Dispatch(ctx, &x.sub, req.Meta); err != nil {
		r := domain.Reject(domain.StageDispatch, domain.ErrDispatchFailed, http.StatusInternalServerError, "dispatch failed: "+err.Error())
		r.Action = domain.ActionSubmitError
		return p.reject(ctx, x, r)
	}

	return p.accept(ctx, x)
}

func (p *Pipeline) accept(ctx context.Context, x *exchange) *Outcome {
	meta := x.req.Meta
	inquiry := x.sub.InquiryType.Label()

	p.deps.Events.Audit(ctx, meta, domain.ActionSubmitSuccess, map[string]string{
		"inquiry_type": inquiry,
		"email":        x.sub.Email,
	})
	p.deps.Events.ContactSuccess(ctx, meta, x.sub.Email, inquiry)

	out := &Outcome{Status: http.StatusOK, Message: SuccessMessage, BotScore: x.botScore}

	// Regenerate the session ID. The double-submit token is already gone
	// and is not reissued; the client fetches a new pair.
	newID, err := p.deps.NewSessionID()
	if err == nil {
		err = p.deps.Store.Rename(ctx, x.req.SessionID, newID)
	}
	if err != nil {
		p.deps.Events.Security(ctx, meta, "Session regeneration failed")
		return out
	}
	out.NewSessionID = newID
	return out
}

func (p *Pipeline) reject(ctx context.Context, x *exchange, r *domain.Rejection) *Outcome {
	meta := x.req.Meta

	details := map[string]string{
		"reason": r.Reason,
		"stage":  string(r.Stage),
	}
	if r.Field != "" {
		details["field"] = r.Field
		details["rule"] = r.Rule
	}

	p.deps.Events.Security(ctx, meta, r.Reason)
	p.deps.Events.Audit(ctx, meta, r.Action, details)
	p.deps.Events.ContactError(ctx, meta, r.Message)

	return &Outcome{
		Rejection: r,
		Status:    r.Status,
		Message:   r.Message,
		BotScore:  x.botScore,
	}
}

// internal converts an unexpected error into a 500 rejection.
func internal(stage domain.Stage, err error) *domain.Rejection {
	de := domain.ErrInternalServer
	var target *domain.DomainError
	if errors.As(err, &target) {
		de = target
	}
	r := domain.Reject(domain.StageInternal, de, http.StatusInternalServerError, string(stage)+": "+err.Error())
	r.Message = domain.ErrInternalServer.Message
	r.Action = domain.ActionSubmitError
	return r
}

// ============================================================================
// Stages
// ============================================================================

func (p *Pipeline) checkMethod(_ context.Context, x *exchange) *domain.Rejection {
	if x.req.Method != http.MethodPost {
		return domain.Reject(domain.StageMethod, domain.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed: "+x.req.Method)
	}
	return nil
}

func (p *Pipeline) checkSize(_ context.Context, x *exchange) *domain.Rejection {
	if x.req.Body == nil {
		x.body = nil
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(x.req.Body, p.cfg.MaxBodyBytes+1))
	if err != nil {
		return domain.Reject(domain.StageSize, domain.ErrPayloadMalformed, http.StatusBadRequest, "Request body read failed: "+err.Error())
	}
	if int64(len(body)) > p.cfg.MaxBodyBytes {
		return domain.Reject(domain.StageSize, domain.ErrPayloadTooLarge, http.StatusBadRequest, "Request too large")
	}
	x.body = body
	return nil
}

func (p *Pipeline) checkParse(_ context.Context, x *exchange) *domain.Rejection {
	if err := json.Unmarshal(x.body, &x.sub); err != nil {
		return domain.Reject(domain.StageParse, domain.ErrPayloadMalformed, http.StatusBadRequest, "Invalid JSON: "+err.Error())
	}
	x.sub.Normalize()
	return nil
}

func (p *Pipeline) checkCSRF(ctx context.Context, x *exchange) *domain.Rejection {
	ok, err := p.deps.Tokens.ValidateCSRF(ctx, x.req.SessionID, x.sub.CSRFToken)
	if err != nil {
		return internal(domain.StageCSRF, err)
	}
	if !ok {
		return domain.SecurityRejection(domain.StageCSRF, "CSRF token validation failed", "")
	}
	return nil
}

func (p *Pipeline) checkDoubleSubmit(ctx context.Context, x *exchange) *domain.Rejection {
	if !p.deps.Tokens.DoubleSubmitEnabled() {
		return nil
	}
	ok, err := p.deps.Tokens.ValidateAndConsumeDoubleSubmit(ctx, x.req.SessionID, x.sub.DoubleSubmitToken)
	if err != nil {
		return internal(domain.StageDoubleSubmit, err)
	}
	if !ok {
		return domain.SecurityRejection(domain.StageDoubleSubmit, "Double submit token validation failed", DoubleSubmitMessage)
	}
	return nil
}

func (p *Pipeline) checkBotScore(ctx context.Context, x *exchange) *domain.Rejection {
	if p.deps.Verifier == nil {
		return nil
	}
	var (
		res *BotScoreResult
		err error
	)
	if x.sub.BotScoreToken == "" {
		res = &BotScoreResult{Success: false, ErrorCodes: []string{"missing-input-response"}}
	} else {
		res, err = p.deps.Verifier.Verify(ctx, x.sub.BotScoreToken, x.req.Meta.ClientIP)
	}

	pass, label := p.cfg.BotScore.Evaluate(res, err)
	x.botScore = label
	if !pass {
		return domain.SecurityRejection(domain.StageBotScore, "reCAPTCHA validation failed: "+label, BotScoreMessage)
	}
	return nil
}

func (p *Pipeline) checkHoneypot(_ context.Context, x *exchange) *domain.Rejection {
	if !p.cfg.Honeypot {
		return nil
	}
	if x.sub.Honeypot != "" {
		return domain.SecurityRejection(domain.StageHoneypot, "Honeypot triggered", "").Blocked()
	}
	return nil
}

func (p *Pipeline) checkTimestamp(_ context.Context, x *exchange) *domain.Rejection {
	if !p.cfg.TimestampCheck {
		return nil
	}
	elapsed := time.Duration(p.deps.Clock.now().Unix()-int64(x.sub.Timestamp)) * time.Second
	if elapsed < p.cfg.MinFillTime || elapsed > p.cfg.MaxFillTime {
		return domain.SecurityRejection(domain.StageTimestamp, "Timestamp check failed", "")
	}
	return nil
}

func (p *Pipeline) checkRateLimit(ctx context.Context, x *exchange) *domain.Rejection {
	ok, err := p.deps.Limiter.CheckAndRecord(ctx, x.req.SessionID, x.req.Meta.ClientIP, x.sub.Email)
	if err != nil {
		return internal(domain.StageRateLimit, err)
	}
	if !ok {
		return domain.Reject(domain.StageRateLimit, domain.ErrRateLimited, http.StatusTooManyRequests, "Rate limit exceeded").Blocked()
	}
	return nil
}

func (p *Pipeline) checkFields(ctx context.Context, x *exchange) *domain.Rejection {
	return p.deps.Validator.ValidateFields(ctx, &x.sub)
}

func (p *Pipeline) checkContent(_ context.Context, x *exchange) *domain.Rejection {
	return p.deps.Validator.ScanContent(&x.sub)
}
