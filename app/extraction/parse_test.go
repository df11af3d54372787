package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantItems []string
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "direct array",
			raw:       `[{"text": "准备明天的会议"}, {"text": "买咖啡"}, {"text": "给妈妈打电话"}]`,
			wantItems: []string{"准备明天的会议", "买咖啡", "给妈妈打电话"},
			wantStage: StageDirect,
		},
		{
			name:      "direct array with surrounding whitespace and padded text",
			raw:       "\n  [{\"text\": \"  buy milk \"}, {\"text\": \"call mom\\n\"}]  \n",
			wantItems: []string{"buy milk", "call mom"},
			wantStage: StageDirect,
		},
		{
			name:      "invalid entries are dropped",
			raw:       `[{"text": "a"}, "b", {"text": 5}, {"title": "c"}, null, {"text": "   "}, {"text": "d"}]`,
			wantItems: []string{"a", "d"},
			wantStage: StageDirect,
		},
		{
			name:      "duplicate text keys keep the last value",
			raw:       `[{"text": "", "text": "a"}, {"text": "b", "text": 7}]`,
			wantItems: []string{"a"},
			wantStage: StageDirect,
		},
		{
			name:      "empty array",
			raw:       `[]`,
			wantStage: StageDirect,
			wantErr:   ErrEmptyResult,
		},
		{
			name:      "array of blank texts does not fall back to lines",
			raw:       `[{"text": " "}, {"text": ""}]`,
			wantStage: StageDirect,
			wantErr:   ErrEmptyResult,
		},
		{
			name:      "fenced block inside prose",
			raw:       "Here are your tasks:\n```json\n[{\"text\": \"write report\"}, {\"text\": \"book flight\"}]\n```\nGood luck!",
			wantItems: []string{"write report", "book flight"},
			wantStage: StageFenced,
		},
		{
			name:      "fenced block with empty array",
			raw:       "```json\n[]\n```",
			wantStage: StageFenced,
			wantErr:   ErrEmptyResult,
		},
		{
			name:      "broken fenced block falls back to lines",
			raw:       "Tasks:\n```json\n[{\"text\": broken\n```",
			wantItems: []string{"Tasks:", "```json", "[{\"text\": broken", "```"},
			wantStage: StageLines,
		},
		{
			name:      "unlabeled fence is plain text",
			raw:       "```\n[{\"text\": \"a\"}]\n```",
			wantItems: []string{"```", "[{\"text\": \"a\"}]", "```"},
			wantStage: StageLines,
		},
		{
			name:      "plain lines",
			raw:       "buy milk\n\n   call mom  \r\n\t\nfinish report",
			wantItems: []string{"buy milk", "call mom", "finish report"},
			wantStage: StageLines,
		},
		{
			name:      "single line of prose",
			raw:       "  随便写点什么吧，今天心情不错。  ",
			wantItems: []string{"随便写点什么吧，今天心情不错。"},
			wantStage: StageLines,
		},
		{
			name:      "json object is not a list",
			raw:       `{"text": "a"}`,
			wantItems: []string{`{"text": "a"}`},
			wantStage: StageLines,
		},
		{
			name:      "blank response",
			raw:       " \n\t\n ",
			wantStage: StageLines,
			wantErr:   ErrEmptyResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResponse(tt.raw)
			assert.Equal(t, tt.wantStage, res.Stage)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, res.Items)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, res.Items)
		})
	}
}

func TestParseResponse_DirectWinsOverFence(t *testing.T) {
	raw := `[{"text": "use ` + "```json" + ` blocks"}]`

	res, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, StageDirect, res.Stage)
	assert.Equal(t, []string{"use ```json blocks"}, res.Items)
}
