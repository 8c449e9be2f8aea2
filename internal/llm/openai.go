package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"dcc/internal/trace"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) *OpenAIProvider {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, option.WithHTTPClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, model: model}
}

// ChatStream sends messages to the Responses API and calls onToken for each
// text delta as it arrives.
func (o *OpenAIProvider) ChatStream(ctx context.Context, messages []Message, onToken func(string)) (_ *Completion, err error) {
	ctx, span := trace.Tracer().Start(ctx, "llm.chat_stream",
		oteltrace.WithAttributes(
			attribute.String("llm.model", o.model),
			attribute.Int("llm.messages", len(messages)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	input := make([]responses.ResponseInputItemUnionParam, 0, len(messages))
	for _, m := range messages {
		input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRole(m.Role)))
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
	}

	events := o.client.Responses.NewStreaming(ctx, params)
	defer events.Close()

	var text strings.Builder
	completion := &Completion{Model: o.model}

	for events.Next() {
		event := events.Current()

		switch event.Type {
		case "response.output_text.delta":
			if event.Delta != "" {
				text.WriteString(event.Delta)
				onToken(event.Delta)
			}
		case "response.completed":
			completion.Model = string(event.Response.Model)
			completion.InputTokens = event.Response.Usage.InputTokens
			completion.OutputTokens = event.Response.Usage.OutputTokens
		case "response.incomplete":
			return nil, fmt.Errorf("llm: response incomplete: %s", event.Response.IncompleteDetails.Reason)
		case "response.failed":
			return nil, fmt.Errorf("llm: response failed: %s", event.Response.Error.Message)
		}
	}

	if err := events.Err(); err != nil {
		return nil, fmt.Errorf("llm: stream: %w", err)
	}

	completion.Text = text.String()
	span.SetAttributes(
		attribute.Int64("llm.input_tokens", completion.InputTokens),
		attribute.Int64("llm.output_tokens", completion.OutputTokens),
	)
	return completion, nil
}
