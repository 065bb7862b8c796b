package script_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shorts-bot/config"
	"shorts-bot/script"
	"shorts-bot/types"
)

type mockTextClient struct {
	mock.Mock
}

func (m *mockTextClient) Complete(ctx context.Context, req script.TextRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

var shortsSchema = types.Schema{
	{Name: types.FieldImagePrompt, Description: "image prompt"},
	{Name: types.FieldScript, Description: "narration"},
	{Name: types.FieldTitle, Description: "title"},
}

func newWriter(client script.TextClient) *script.Writer {
	cfg := config.Default().Text
	return script.New(client, cfg, zap.NewNop())
}

func TestWriter_Generate(t *testing.T) {
	req := script.Request{System: "sys", Prompt: "a lonely lighthouse keeper", Schema: shortsSchema}

	t.Run("valid response", func(t *testing.T) {
		client := new(mockTextClient)
		client.On("Complete", mock.Anything, mock.MatchedBy(func(r script.TextRequest) bool {
			return r.Prompt == req.Prompt && r.System == "sys" && len(r.Schema) == 3
		})).Return(`{"image_prompt":"a lighthouse at dusk","script":"He kept the light.","youtube_title":"The Keeper"}`, nil).Once()

		content, err := newWriter(client).Generate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "He kept the light.", content.Narration)
		assert.Equal(t, "The Keeper", content.Title)
		assert.Equal(t, "a lighthouse at dusk", content.ImagePrompt)
		client.AssertExpectations(t)
	})

	t.Run("empty field is malformed", func(t *testing.T) {
		client := new(mockTextClient)
		client.On("Complete", mock.Anything, mock.Anything).
			Return(`{"image_prompt":"x","script":"","youtube_title":"T"}`, nil).Once()

		_, err := newWriter(client).Generate(context.Background(), req)
		assert.ErrorIs(t, err, script.ErrMalformedResponse)
		client.AssertNumberOfCalls(t, "Complete", 1)
	})

	t.Run("empty response", func(t *testing.T) {
		client := new(mockTextClient)
		client.On("Complete", mock.Anything, mock.Anything).Return("", script.ErrEmptyResponse).Once()

		_, err := newWriter(client).Generate(context.Background(), req)
		assert.ErrorIs(t, err, script.ErrEmptyResponse)
	})

	t.Run("service error passes through", func(t *testing.T) {
		client := new(mockTextClient)
		svcErr := &script.ServiceError{Provider: "gemini", Err: errors.New("quota exceeded")}
		client.On("Complete", mock.Anything, mock.Anything).Return("", svcErr).Once()

		_, err := newWriter(client).Generate(context.Background(), req)
		var got *script.ServiceError
		require.ErrorAs(t, err, &got)
		assert.Equal(t, "gemini", got.Provider)
	})

	t.Run("unknown error becomes service error", func(t *testing.T) {
		client := new(mockTextClient)
		client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection reset")).Once()

		_, err := newWriter(client).Generate(context.Background(), req)
		var got *script.ServiceError
		assert.ErrorAs(t, err, &got)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := newWriter(nil).Generate(context.Background(), req)
		assert.ErrorIs(t, err, types.ErrMissingCredentials)
	})
}

func TestParse(t *testing.T) {
	schema := types.Schema{{Name: types.FieldScript}, {Name: types.FieldTitle}}

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"fenced json", "```json\n{\"script\":\"s\",\"youtube_title\":\"t\"}\n```", nil},
		{"blank", "   ", script.ErrEmptyResponse},
		{"not json", "Here is your story", script.ErrMalformedResponse},
		{"array", `[{"script":"s","youtube_title":"t"}]`, script.ErrMalformedResponse},
		{"null", `null`, script.ErrMalformedResponse},
		{"missing field", `{"script":"s"}`, script.ErrMalformedResponse},
		{"non-string field", `{"script":"s","youtube_title":7}`, script.ErrMalformedResponse},
		{"whitespace field", `{"script":"  ","youtube_title":"t"}`, script.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := script.Parse(tt.raw, schema)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, content)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s", content.Narration)
			assert.Equal(t, "t", content.Title)
		})
	}
}

func TestParse_ExtraFieldsIgnored(t *testing.T) {
	content, err := script.Parse(`{"script":"s","youtube_title":"t","mood":"dark"}`,
		types.Schema{{Name: types.FieldScript}, {Name: types.FieldTitle}})
	require.NoError(t, err)
	assert.NotContains(t, content.Fields, "mood")
}

func TestParse_MalformedPayloadKeepsRunesIntact(t *testing.T) {
	raw := "x" + strings.Repeat("ş", 300)

	_, err := script.Parse(raw, types.Schema{{Name: types.FieldScript}})

	require.ErrorIs(t, err, script.ErrMalformedResponse)
	assert.True(t, utf8.ValidString(err.Error()), "error text must stay valid UTF-8")
	assert.Contains(t, err.Error(), "x"+strings.Repeat("ş", 199)+"...")
}
