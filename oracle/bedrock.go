package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/hairizuan-noorazman/desktop-automation/action"
	"github.com/hairizuan-noorazman/desktop-automation/expectation"
)

// BedrockOracle implements Oracle using AWS Bedrock's Anthropic models
// with the computer-use tool.
type BedrockOracle struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	displayWidth  int
	displayHeight int
}

// NewBedrockOracle creates a Bedrock-backed oracle. displayWidth and
// displayHeight describe the resized screenshot space the model sees.
func NewBedrockOracle(region, modelID string, maxTokens, displayWidth, displayHeight int) (*BedrockOracle, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockOracle{
		client:        bedrockruntime.NewFromConfig(cfg),
		modelID:       modelID,
		maxTokens:     maxTokens,
		displayWidth:  displayWidth,
		displayHeight: displayHeight,
	}, nil
}

type bedrockResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (o *BedrockOracle) invoke(ctx context.Context, body map[string]interface{}) (*bedrockResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := o.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(o.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, ErrEmptyResponse
	}
	return &response, nil
}

// Propose sends the running history with the computer tool attached and
// parses the model's next turn.
func (o *BedrockOracle) Propose(ctx context.Context, history []Message) (*Turn, error) {
	body := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        o.maxTokens,
		"system":            systemPrompt,
		"messages":          history,
		"tools": []map[string]interface{}{
			{
				"type":              "computer_20250124",
				"name":              "computer",
				"display_width_px":  o.displayWidth,
				"display_height_px": o.displayHeight,
			},
		},
	}

	response, err := o.invoke(ctx, body)
	if err != nil {
		return nil, err
	}

	turn := &Turn{}
	var texts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
			turn.Content = append(turn.Content, TextBlock(block.Text))
		case "tool_use":
			a, err := parseToolInput(block.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			turn.Proposals = append(turn.Proposals, ActionProposal{ID: block.ID, Action: a})
			turn.Content = append(turn.Content, ContentBlock{
				Type:  "tool_use",
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	turn.Text = strings.Join(texts, "\n")
	return turn, nil
}

// toolInput is the computer tool's wire shape. Coordinates arrive as
// two-element arrays and durations in seconds.
type toolInput struct {
	Action          string   `json:"action"`
	Coordinate      []int    `json:"coordinate"`
	StartCoordinate []int    `json:"start_coordinate"`
	Text            string   `json:"text"`
	Key             string   `json:"key"`
	ScrollDirection string   `json:"scroll_direction"`
	ScrollAmount    int      `json:"scroll_amount"`
	Duration        *float64 `json:"duration"`
	Down            *bool    `json:"down"`
}

func parseToolInput(raw json.RawMessage) (action.Action, error) {
	var input toolInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return action.Action{}, err
	}

	a := action.Action{
		Kind:            action.Kind(input.Action),
		Text:            input.Text,
		Key:             input.Key,
		ScrollDirection: action.ScrollDirection(input.ScrollDirection),
		ScrollAmount:    input.ScrollAmount,
	}
	if len(input.Coordinate) == 2 {
		a.Coordinate = &action.Point{X: input.Coordinate[0], Y: input.Coordinate[1]}
	}
	if len(input.StartCoordinate) == 2 {
		a.StartCoordinate = &action.Point{X: input.StartCoordinate[0], Y: input.StartCoordinate[1]}
	}
	if input.Duration != nil {
		a.DurationMs = int(*input.Duration * 1000)
	}
	if a.Kind == action.KindHoldKey {
		if a.Key == "" {
			a.Key = input.Text
		}
		// Without an explicit flag a hold_key is a press.
		a.Down = input.Down == nil || *input.Down
	}

	if err := a.Validate(); err != nil {
		return action.Action{}, err
	}
	return a, nil
}

// DecomposeScenario asks the model to break a scenario description into
// expected actions.
func (o *BedrockOracle) DecomposeScenario(ctx context.Context, description string) ([]expectation.ExpectedAction, error) {
	body := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        o.maxTokens,
		"messages": []Message{
			{Role: RoleUser, Content: []ContentBlock{TextBlock(decomposePrompt + description)}},
		},
	}

	response, err := o.invoke(ctx, body)
	if err != nil {
		return nil, err
	}
	return expectation.ParseDecomposition(response.Content[0].Text)
}

// VerifyTextVisible asks a strict yes/no about text visibility in the
// screenshot.
func (o *BedrockOracle) VerifyTextVisible(ctx context.Context, screenshot []byte, mediaType, text string) (bool, error) {
	return o.yesNo(ctx, screenshot, mediaType, verifyTextPrompt+text)
}

// CheckStepCompletion asks whether the described step looks complete.
func (o *BedrockOracle) CheckStepCompletion(ctx context.Context, screenshot []byte, mediaType, stepDescription string) (bool, error) {
	return o.yesNo(ctx, screenshot, mediaType, checkCompletionPrompt+stepDescription)
}

func (o *BedrockOracle) yesNo(ctx context.Context, screenshot []byte, mediaType, prompt string) (bool, error) {
	body := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        16,
		"messages": []Message{
			{Role: RoleUser, Content: []ContentBlock{
				ImageBlock(mediaType, base64.StdEncoding.EncodeToString(screenshot)),
				TextBlock(prompt),
			}},
		},
	}

	response, err := o.invoke(ctx, body)
	if err != nil {
		return false, err
	}

	answer := strings.ToUpper(strings.TrimSpace(response.Content[0].Text))
	switch {
	case strings.HasPrefix(answer, "YES"):
		return true, nil
	case strings.HasPrefix(answer, "NO"):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnparseableVerification, answer)
	}
}
