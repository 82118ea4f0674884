package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
	options  *model.Options
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = input
	f.options = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func testOptions() Options {
	return Options{MaxNewTokens: 150, Temperature: 0.8, TopK: 50, TopP: 0.95, DoSample: true}
}

func TestOptionsEffective(t *testing.T) {
	o := testOptions()
	assert.Equal(t, o, o.Effective())

	o.DoSample = false
	eff := o.Effective()
	assert.Zero(t, eff.Temperature)
	assert.Equal(t, 1, eff.TopK)
	assert.Equal(t, 1.0, eff.TopP)
	assert.Equal(t, 150, eff.MaxNewTokens)
}

func TestChatModelGenerator(t *testing.T) {
	fake := &fakeChatModel{reply: "Hello there."}
	g := NewChatModelGenerator(fake)

	out, err := g.Generate(context.Background(), "User: {hi}\nTerBot:", testOptions())
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", out)

	require.Len(t, fake.received, 2)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Equal(t, schema.User, fake.received[1].Role)
	assert.Equal(t, "User: {hi}\nTerBot:", fake.received[1].Content)

	require.NotNil(t, fake.options.MaxTokens)
	assert.Equal(t, 150, *fake.options.MaxTokens)
	require.NotNil(t, fake.options.Temperature)
	assert.InDelta(t, 0.8, *fake.options.Temperature, 1e-6)
}

func TestChatModelGeneratorErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewChatModelGenerator(&fakeChatModel{err: boom}).Generate(context.Background(), "x", testOptions())
	assert.ErrorIs(t, err, boom)

	_, err = NewChatModelGenerator(&fakeChatModel{reply: "  "}).Generate(context.Background(), "x", testOptions())
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestRetryingRecoversFromTransientError(t *testing.T) {
	calls := 0
	flaky := GeneratorFunc(func(context.Context, string, Options) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	})

	r := NewRetrying(flaky, 3, time.Millisecond, zerolog.Nop())
	out, err := r.Generate(context.Background(), "x", testOptions())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestRetryingGivesUp(t *testing.T) {
	calls := 0
	down := GeneratorFunc(func(context.Context, string, Options) (string, error) {
		calls++
		return "", errors.New("unavailable")
	})

	_, err := NewRetrying(down, 2, time.Millisecond, zerolog.Nop()).Generate(context.Background(), "x", testOptions())
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryingDoesNotRetryEmptyOutput(t *testing.T) {
	calls := 0
	empty := GeneratorFunc(func(context.Context, string, Options) (string, error) {
		calls++
		return "", ErrEmptyOutput
	})

	_, err := NewRetrying(empty, 5, time.Millisecond, zerolog.Nop()).Generate(context.Background(), "x", testOptions())
	assert.ErrorIs(t, err, ErrEmptyOutput)
	assert.Equal(t, 1, calls)
}

func TestNewChatModelValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewChatModel(ctx, ProviderConfig{Provider: "telepathy", Options: testOptions()})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	for _, p := range []string{ProviderOpenAI, ProviderDeepSeek, ProviderArk} {
		_, err := NewChatModel(ctx, ProviderConfig{Provider: p, Model: "m", Options: testOptions()})
		assert.Error(t, err, p)
	}
}

func TestNewGeneratorOllama(t *testing.T) {
	g, err := NewGenerator(context.Background(), ProviderConfig{
		Provider: ProviderOllama,
		Model:    "llama3.2",
		Timeout:  time.Second,
		Options:  testOptions(),
	})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestProviderConfigsCarrySampling(t *testing.T) {
	cfg := ProviderConfig{Model: "m", APIKey: "k", Timeout: time.Second, Seed: 7, Options: testOptions()}

	o := ollamaConfig(cfg)
	assert.Equal(t, 50, o.Options.TopK)
	assert.Equal(t, 7, o.Options.Seed)
	assert.Equal(t, 150, o.Options.NumPredict)

	oa := openaiConfig(cfg)
	require.NotNil(t, oa.Seed)
	assert.Equal(t, 7, *oa.Seed)
	assert.Equal(t, map[string]any{"top_k": 50}, oa.ExtraFields)
	assert.InDelta(t, 0.95, *oa.TopP, 1e-6)

	ds := deepseekConfig(cfg)
	assert.Equal(t, 150, ds.MaxTokens)
	assert.InDelta(t, 0.8, ds.Temperature, 1e-6)

	a := arkConfig(cfg)
	require.NotNil(t, a.Timeout)
	assert.Equal(t, time.Second, *a.Timeout)
	assert.Equal(t, 150, *a.MaxTokens)
}

func TestOpenAIConfigWithoutSeed(t *testing.T) {
	opts := testOptions()
	opts.TopK = 0
	oa := openaiConfig(ProviderConfig{Options: opts})
	assert.Nil(t, oa.Seed)
	assert.Nil(t, oa.ExtraFields)
}

func TestIgnoredOptions(t *testing.T) {
	tests := []struct {
		provider string
		seed     int
		want     []string
	}{
		{provider: ProviderOllama, seed: 7, want: nil},
		{provider: ProviderOpenAI, seed: 7, want: nil},
		{provider: ProviderDeepSeek, seed: 0, want: []string{"top_k"}},
		{provider: ProviderArk, seed: 7, want: []string{"top_k", "seed"}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			got := IgnoredOptions(ProviderConfig{Provider: tt.provider, Seed: tt.seed, Options: testOptions()})
			assert.Equal(t, tt.want, got)
		})
	}
}
