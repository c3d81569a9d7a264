package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/coursefinder/ai"
)

// fakeModel implements llms.Model with a settable response sequence.
type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func textResponse(s string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s}}}
}

func testClient(t *testing.T, model llms.Model, maxRetries int) *Client {
	t.Helper()
	cfg := ai.NewConfig(
		ai.WithRetryPolicy(maxRetries, time.Millisecond),
		ai.WithTimeout(time.Second),
	)
	c, err := NewClient(cfg)
	require.NoError(t, err)
	c.model = model
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI))
		_, err := NewClient(cfg)
		require.Error(t, err)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithProvider(ai.Provider("grok")))
		_, err := NewClient(cfg)
		require.ErrorIs(t, err, ai.ErrUnknownProvider)
	})

	t.Run("creates local client", func(t *testing.T) {
		c, err := NewClient(ai.NewConfig())
		require.NoError(t, err)
		assert.NotNil(t, c.model)
	})
}

func TestInvoke(t *testing.T) {
	t.Run("returns raw response text", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{textResponse("1, 4, 7")}}
		c := testClient(t, model, 0)

		text, err := c.Invoke(context.Background(), "rank these", 0.3, 0)
		require.NoError(t, err)
		assert.Equal(t, "1, 4, 7", text)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		model := &fakeModel{
			errs:      []error{errors.New("503 service unavailable"), nil},
			responses: []*llms.ContentResponse{nil, textResponse("recovered")},
		}
		c := testClient(t, model, 2)

		text, err := c.Invoke(context.Background(), "p", 0.1, -1)
		require.NoError(t, err)
		assert.Equal(t, "recovered", text)
		assert.Equal(t, 2, model.calls)
	})

	t.Run("wraps exhausted transient failures", func(t *testing.T) {
		down := errors.New("429 too many requests")
		model := &fakeModel{errs: []error{down, down, down}}
		c := testClient(t, model, 2)

		_, err := c.Invoke(context.Background(), "p", 0.1, 0)
		require.ErrorIs(t, err, ai.ErrTransientBackend)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("does not retry fatal errors", func(t *testing.T) {
		fatal := errors.New("invalid api key")
		model := &fakeModel{errs: []error{fatal}}
		c := testClient(t, model, 3)

		_, err := c.Invoke(context.Background(), "p", 0.1, 0)
		require.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, model.calls)
	})

	t.Run("empty choices surface without retry", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{{Choices: nil}}}
		c := testClient(t, model, 3)

		_, err := c.Invoke(context.Background(), "p", 0.1, 0)
		require.ErrorIs(t, err, ai.ErrEmptyResponse)
		assert.Equal(t, 1, model.calls)
	})
}

func TestTransientError(t *testing.T) {
	assert.False(t, transientError(nil))
	assert.False(t, transientError(errors.New("invalid model name")))
	assert.False(t, transientError(context.Canceled))
	assert.False(t, transientError(ai.ErrEmptyResponse))
	assert.True(t, transientError(context.DeadlineExceeded))
	assert.True(t, transientError(errors.New("rate limit exceeded")))
	assert.True(t, transientError(errors.New("502 bad gateway")))
	assert.True(t, transientError(errors.New("dial tcp: connection refused")))
}
