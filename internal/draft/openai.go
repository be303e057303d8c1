// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI calls the chat completions API through the official SDK.
type OpenAI struct {
	baseURL string
	model   shared.ChatModel
	timeout time.Duration
}

// NewOpenAI creates a chat completions provider. Empty arguments select the
// defaults.
func NewOpenAI(baseURL, model string, timeout time.Duration) *OpenAI {
	m := shared.ChatModel(model)
	if model == "" {
		m = shared.ChatModelGPT4o
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{baseURL: baseURL, model: m, timeout: timeout}
}

func (o *OpenAI) Name() string { return "openai" }

// Complete returns the first choice's message content.
func (o *OpenAI) Complete(ctx context.Context, apiKey, prompt string, maxTokens int) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(o.timeout),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	client := openai.NewClient(opts...)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Model:     o.model,
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
