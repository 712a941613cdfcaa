package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/semaphore"
)

// Invoker sends a bound prompt to the completion service
type Invoker interface {
	// Invoke asks for a reply shaped like out and returns it unvalidated
	Invoke(ctx context.Context, prompt string, out OutputSpec) (string, error)
	// Stream returns fragments in the order produced. The channel is
	// closed after the last fragment or after a fragment carrying Err.
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}

// Fragment is one piece of a streamed reply
type Fragment struct {
	Text string
	Err  error
}

// LLMInvoker is the Invoker backed by a gollem LLM client
type LLMInvoker struct {
	client       gollem.LLMClient
	sem          *semaphore.Weighted
	timeout      time.Duration
	systemPrompt string
}

type InvokerOption func(*LLMInvoker)

// WithMaxConcurrency bounds the number of in-flight calls. Zero or less
// means unbounded.
func WithMaxConcurrency(n int64) InvokerOption {
	return func(i *LLMInvoker) {
		if n > 0 {
			i.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithTimeout bounds each call. Zero means the caller's context decides.
func WithTimeout(d time.Duration) InvokerOption {
	return func(i *LLMInvoker) {
		i.timeout = d
	}
}

// WithSystemPrompt sets the system prompt of every session
func WithSystemPrompt(prompt string) InvokerOption {
	return func(i *LLMInvoker) {
		i.systemPrompt = prompt
	}
}

func NewLLMInvoker(client gollem.LLMClient, opts ...InvokerOption) *LLMInvoker {
	i := &LLMInvoker{client: client}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func generationError(cause error, msg string, options ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrGeneration, cause), msg, options...)
}

func (i *LLMInvoker) acquire(ctx context.Context) (func(), error) {
	if i.sem == nil {
		return func() {}, nil
	}
	if err := i.sem.Acquire(ctx, 1); err != nil {
		return nil, generationError(err, "failed to acquire completion slot")
	}
	return func() { i.sem.Release(1) }, nil
}

func (i *LLMInvoker) sessionOptions(extra ...gollem.SessionOption) []gollem.SessionOption {
	var opts []gollem.SessionOption
	if i.systemPrompt != "" {
		opts = append(opts, gollem.WithSessionSystemPrompt(i.systemPrompt))
	}
	return append(opts, extra...)
}

func (i *LLMInvoker) Invoke(ctx context.Context, prompt string, out OutputSpec) (string, error) {
	release, err := i.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	opts := i.sessionOptions(gollem.WithSessionContentType(gollem.ContentTypeJSON))
	if out.Parameter != nil {
		opts = append(opts, gollem.WithSessionResponseSchema(out.Parameter))
	}

	session, err := i.client.NewSession(ctx, opts...)
	if err != nil {
		return "", generationError(err, "failed to create LLM session", goerr.V(ValueSchema, out.Schema))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", generationError(err, "failed to generate content", goerr.V(ValueSchema, out.Schema))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(ErrGeneration, "empty response from LLM", goerr.V(ValueSchema, out.Schema))
	}

	return strings.Join(resp.Texts, ""), nil
}

func (i *LLMInvoker) Stream(ctx context.Context, prompt string) (<-chan Fragment, error) {
	release, err := i.acquire(ctx)
	if err != nil {
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if i.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
	}

	session, err := i.client.NewSession(ctx, i.sessionOptions()...)
	if err != nil {
		cancel()
		release()
		return nil, generationError(err, "failed to create LLM session")
	}

	stream, err := session.GenerateStream(ctx, gollem.Text(prompt))
	if err != nil {
		cancel()
		release()
		return nil, generationError(err, "failed to start stream")
	}

	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		defer release()
		defer cancel()

		send := func(f Fragment) bool {
			select {
			case ch <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp := range stream {
			if resp == nil {
				continue
			}
			if resp.Error != nil {
				send(Fragment{Err: generationError(resp.Error, "stream failed")})
				return
			}
			for _, text := range resp.Texts {
				if text == "" {
					continue
				}
				if !send(Fragment{Text: text}) {
					return
				}
			}
		}

		if err := ctx.Err(); err != nil {
			send(Fragment{Err: generationError(err, "stream interrupted")})
		}
	}()

	return ch, nil
}
