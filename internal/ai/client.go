package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trading-floor/internal/config"
)

// Client 封装 OpenAI 兼容接口的调用逻辑。
// 不同交易员可以指定不同模型，具体模型名由每次请求携带。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建 AI 客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}
	clientConfig.HTTPClient = httpClient
	client := openai.NewClientWithConfig(clientConfig)

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    client,
	}, nil
}

// CreateChatCompletion 发起一次对话补全请求。
func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		return openai.ChatCompletionResponse{}, errors.New("请求缺少模型名称")
	}

	response, err := c.sdk.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("调用模型失败",
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return openai.ChatCompletionResponse{}, fmt.Errorf("调用模型失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("模型返回结果为空")
	}

	return response, nil
}
