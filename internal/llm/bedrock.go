package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockProvider is the secondary provider: the Bedrock Converse API.
// Best-effort infrastructure; every failure is a *ProviderError so
// callers degrade instead of surfacing it.
type bedrockProvider struct {
	region    string
	accessKey string
	secretKey string
	modelID   string
	logger    *utils.Logger

	initOnce sync.Once
	client   *bedrockruntime.Client
	initErr  error
}

func NewBedrockProvider(region, accessKey, secretKey, modelID string, logger *utils.Logger) Provider {
	return &bedrockProvider{
		region:    region,
		accessKey: accessKey,
		secretKey: secretKey,
		modelID:   modelID,
		logger:    logger,
	}
}

func (p *bedrockProvider) Configured() bool {
	return p.accessKey != "" && p.secretKey != ""
}

func (p *bedrockProvider) getClient(ctx context.Context) (*bedrockruntime.Client, error) {
	p.initOnce.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(p.region),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(p.accessKey, p.secretKey, ""),
			),
		)
		if err != nil {
			p.initErr = err
			return
		}
		p.client = bedrockruntime.NewFromConfig(cfg)
	})

	return p.client, p.initErr
}

func (p *bedrockProvider) Complete(ctx context.Context, r Request) (string, error) {
	if !p.Configured() {
		return "", ErrNoCredentials
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return "", &ProviderError{Provider: "bedrock", Err: err}
	}

	messages := make([]types.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		role := types.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		messages = append(messages, types.Message{
			Role: role,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: m.Content},
			},
		})
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.modelID),
		Messages: messages,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(r.MaxTokens),
			Temperature: aws.Float32(r.Temperature),
		},
	}
	if r.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: r.System},
		}
	}

	resp, err := client.Converse(ctx, input)
	if err != nil {
		p.logger.Error("Bedrock Converse call failed", "error", err, "model", p.modelID)
		return "", &ProviderError{Provider: "bedrock", Err: err}
	}

	// Reply text is nested under output -> message -> content blocks.
	output, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", &ProviderError{Provider: "bedrock", Err: fmt.Errorf("unexpected output shape %T", resp.Output)}
	}

	var parts []string
	for _, block := range output.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			parts = append(parts, text.Value)
		}
	}

	if len(parts) == 0 {
		return "", &ProviderError{Provider: "bedrock", Err: fmt.Errorf("empty response content")}
	}

	return strings.Join(parts, ""), nil
}
