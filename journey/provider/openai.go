package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

type OpenAIClient struct {
	client          *openai.Client
	maxOutputTokens int64
}

// NewOpenAIClient creates an OpenAI client. SDK-level retries are disabled so that 429s reach the
// Invoker and trigger a model fallback instead of being retried against the same model.
func NewOpenAIClient(apiKey string, maxOutputTokens int, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("NewOpenAIClient: api key is empty")
	}
	all := append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	c := openai.NewClient(all...)
	return &OpenAIClient{client: &c, maxOutputTokens: int64(max(maxOutputTokens, 0))}, nil
}

// Caller returns a Caller that sends the whole prompt as one user message.
func (o *OpenAIClient) Caller(format ResponseFormat) Caller {
	return func(ctx context.Context, model, prompt string) (string, error) {
		params := responses.ResponseNewParams{
			Model: model,
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: []responses.ResponseInputItemUnionParam{
					responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
				},
			},
		}
		if o.maxOutputTokens > 0 {
			params.MaxOutputTokens = openai.Int(o.maxOutputTokens)
		}
		if format.JSON {
			params.Text = responses.ResponseTextConfigParam{Format: openAIFormat(format)}
		}

		resp, err := o.client.Responses.New(ctx, params)
		if err != nil {
			return "", err
		}
		return resp.OutputText(), nil
	}
}

func openAIFormat(format ResponseFormat) responses.ResponseFormatTextConfigUnionParam {
	if format.Schema == nil {
		return responses.ResponseFormatTextConfigUnionParam{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	name := format.Name
	if name == "" {
		name = "response"
	}
	// Free-form maps in the schema rule out strict mode.
	return responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:   name,
			Schema: format.Schema,
			Strict: openai.Bool(false),
			Type:   "json_schema",
		},
	}
}
