package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trading-floor/internal/account"
	"trading-floor/internal/activity"
	"trading-floor/internal/market"
)

// Status 表示一次会话的终止状态。
type Status string

const (
	// StatusCompleted 表示会话正常结束，包括回合预算耗尽的情况。
	StatusCompleted Status = "completed"
	// StatusAborted 表示会话因模型调用等不可恢复错误而中止。
	StatusAborted Status = "aborted"
)

// CompletionProvider 抽象模型补全端点。
type CompletionProvider interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Recorder 接收会话过程中产生的活动记录。
type Recorder interface {
	Note(ctx context.Context, name string, category activity.Category, message string)
}

// RunResult 描述一次会话的结果。
type RunResult struct {
	Status       Status
	Mode         Mode
	Turns        int
	FinalMessage string
	Err          error
}

// Trader 驱动单个交易员的多轮工具调用会话。
// 每个 Trader 在会话期间独占自己的账户，交易员之间不共享任何可变状态。
type Trader struct {
	name     string
	model    string
	account  *account.Account
	provider CompletionProvider
	executor *toolExecutor
	recorder Recorder
	logger   *zap.Logger

	mode     Mode
	maxTurns int
	now      func() time.Time
}

// NewTrader 创建交易员会话。首次运行从寻找新交易模式开始。
func NewTrader(name, model string, acct *account.Account, provider CompletionProvider, oracle market.Oracle, recorder Recorder, maxTurns int, logger *zap.Logger) *Trader {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Trader{
		name:     name,
		model:    model,
		account:  acct,
		provider: provider,
		executor: newToolExecutor(acct, oracle),
		recorder: recorder,
		logger:   logger.With(zap.String("trader", name)),
		mode:     ModeSeekTrades,
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

// Name 返回交易员名称。
func (t *Trader) Name() string {
	return t.name
}

// Mode 返回下一次会话将使用的模式。
func (t *Trader) Mode() Mode {
	return t.mode
}

// Account 返回交易员独占的账户。
func (t *Trader) Account() *account.Account {
	return t.account
}

// Run 执行一次完整会话：渲染初始提示，进入有界回合循环，
// 每回合要么得到最终回复，要么按请求顺序串行执行全部工具调用。
// 无论会话成功还是中止，结束后模式都会翻转一次。
func (t *Trader) Run(ctx context.Context) RunResult {
	mode := t.mode
	result := RunResult{Status: StatusCompleted, Mode: mode}

	defer func() {
		// 模式转换只在这一处发生，与会话结果无关。
		t.mode = mode.Next()
		t.note(ctx, activity.CategoryAgent, "Session complete")
	}()

	t.note(ctx, activity.CategoryAgent, fmt.Sprintf("Starting %s session", mode))

	// 账户首次使用且策略为空时分配预置策略。
	if t.account.Strategy() == "" {
		if preset := DefaultStrategy(t.name); preset != "" {
			if err := t.account.ChangeStrategy(ctx, preset); err != nil {
				return t.abort(ctx, &result, err)
			}
		}
	}

	messages, err := t.initialMessages(ctx, mode)
	if err != nil {
		return t.abort(ctx, &result, err)
	}

	for turn := 0; turn < t.maxTurns; turn++ {
		response, err := t.provider.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:      t.model,
			Messages:   messages,
			Tools:      traderTools(),
			ToolChoice: "auto",
		})
		if err != nil {
			return t.abort(ctx, &result, err)
		}
		if len(response.Choices) == 0 {
			return t.abort(ctx, &result, fmt.Errorf("模型返回结果为空"))
		}

		message := response.Choices[0].Message
		messages = append(messages, message)
		result.Turns = turn + 1

		if len(message.ToolCalls) == 0 {
			result.FinalMessage = message.Content
			t.note(ctx, activity.CategoryResponse, message.Content)
			t.logger.Info("会话结束",
				zap.String("mode", mode.String()),
				zap.Int("turns", result.Turns),
			)
			return result
		}

		// 同一回合内的工具调用按请求顺序串行执行：
		// 后续调用可能依赖前面调用造成的余额/持仓变化。
		for _, call := range message.ToolCalls {
			t.note(ctx, activity.CategoryTool,
				fmt.Sprintf("%s(%s)", call.Function.Name, call.Function.Arguments))

			output := t.executor.execute(ctx, call)

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	// 回合预算耗尽同样视为正常结束，保留最后一次成功变更后的状态。
	t.logger.Info("会话达到回合上限",
		zap.String("mode", mode.String()),
		zap.Int("turns", result.Turns),
	)
	return result
}

// initialMessages 组装系统提示与首条用户消息，包含策略文本与账户快照。
func (t *Trader) initialMessages(ctx context.Context, mode Mode) ([]openai.ChatCompletionMessage, error) {
	snapshot, err := t.account.Report(ctx)
	if err != nil {
		return nil, err
	}
	reportJSON, err := snapshot.JSON()
	if err != nil {
		return nil, err
	}

	now := t.now()
	instructions, err := traderInstructions(t.name, now)
	if err != nil {
		return nil, err
	}
	opening, err := sessionMessage(mode, t.name, t.account.Strategy(), reportJSON, now)
	if err != nil {
		return nil, err
	}

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: instructions},
		{Role: openai.ChatMessageRoleUser, Content: opening},
	}, nil
}

// abort 记录错误并将会话标记为中止，错误不会继续向上传播。
func (t *Trader) abort(ctx context.Context, result *RunResult, err error) RunResult {
	result.Status = StatusAborted
	result.Err = err

	t.note(ctx, activity.CategoryError, err.Error())
	t.logger.Error("会话中止", zap.Error(err))

	return *result
}

func (t *Trader) note(ctx context.Context, category activity.Category, message string) {
	if t.recorder == nil || message == "" {
		return
	}
	t.recorder.Note(ctx, t.name, category, message)
}
