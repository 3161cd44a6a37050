package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCompletionAPI is a mock for the model provider API
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockCompletionAPI) CreateChatCompletion(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "CONTRACT OPPORTUNITY DETAILS"
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "text").Return(nil, errors.New("rate limited"))

	embedding, err := client.GenerateEmbedding(ctx, "text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "text").Return(make([]float32, 42), nil)

	embedding, err := client.GenerateEmbedding(ctx, "text")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrWrongDimensions, err)
}

func TestClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	messages := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant."},
		{Role: RoleUser, Content: "What is the NAICS code?"},
	}
	mockAPI.On("CreateChatCompletion", ctx, messages).Return("The NAICS code is 541511.", nil)

	answer, err := client.Complete(ctx, messages)

	assert.NoError(t, err)
	assert.Equal(t, "The NAICS code is 541511.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_NoMessages(t *testing.T) {
	client := NewClient("")

	answer, err := client.Complete(context.Background(), nil)

	assert.Error(t, err)
	assert.Empty(t, answer)
}

func TestClient_Complete_APIError(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "hello"}}
	mockAPI.On("CreateChatCompletion", ctx, messages).Return("", errors.New("model overloaded"))

	answer, err := client.Complete(ctx, messages)

	assert.Error(t, err)
	assert.Empty(t, answer)
	mockAPI.AssertExpectations(t)
}
