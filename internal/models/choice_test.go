package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionEncoding(t *testing.T) {
	assert.Equal(t, byte('R'), DecisionRed.Symbol())
	assert.Equal(t, byte('B'), DecisionBlue.Symbol())
	assert.Equal(t, "Red", DecisionRed.Label())
	assert.Equal(t, "Blue", DecisionBlue.Label())
	assert.Equal(t, "R", DecisionRed.String())
	assert.False(t, Decision('X').Valid())
	assert.Equal(t, "Unknown", Decision('X').Label())
	assert.Equal(t, "红色", DecisionRed.DisplayName())
	assert.Equal(t, "蓝色", DecisionBlue.DisplayName())
	assert.Equal(t, "未知", Decision('X').DisplayName())
}

func TestParseDecision(t *testing.T) {
	cases := map[string]Decision{
		"R":    DecisionRed,
		"r":    DecisionRed,
		"red":  DecisionRed,
		"Blue": DecisionBlue,
		" B ":  DecisionBlue,
	}
	for input, want := range cases {
		got, err := ParseDecision(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseDecision("X")
	assert.Error(t, err)
	_, err = ParseDecision("")
	assert.Error(t, err)
}

func TestDecisionFromSymbol(t *testing.T) {
	d, ok := DecisionFromSymbol('B')
	assert.True(t, ok)
	assert.Equal(t, DecisionBlue, d)

	_, ok = DecisionFromSymbol('A')
	assert.False(t, ok)
}

func TestDecisionJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Choice Decision `json:"choice"`
	}{DecisionBlue})
	require.NoError(t, err)
	assert.JSONEq(t, `{"choice":"B"}`, string(data))

	var req struct {
		Choice Decision `json:"choice"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"choice":"red"}`), &req))
	assert.Equal(t, DecisionRed, req.Choice)

	assert.Error(t, json.Unmarshal([]byte(`{"choice":"green"}`), &req))
}

func TestChoicePromptLabel(t *testing.T) {
	prompt := ChoicePrompt{Red: "go left", Blue: "go right"}
	assert.Equal(t, "go left", prompt.Label(DecisionRed))
	assert.Equal(t, "go right", prompt.Label(DecisionBlue))
	assert.Equal(t, "", prompt.Label(Decision('X')))
}

func TestStoryDataLookups(t *testing.T) {
	choices := map[int]ChoicePrompt{0: {Title: "c0"}}
	passages := map[string]Passage{"R": {Title: "red"}}
	data := NewStoryData(Passage{Title: "start"}, Passage{Title: "end"}, choices, passages)

	// 构造后修改源映射不影响数据集
	passages["B"] = Passage{Title: "blue"}
	delete(choices, 0)

	p, ok := data.PassageFor("")
	assert.True(t, ok)
	assert.Equal(t, "start", p.Title)

	p, ok = data.PassageFor("R")
	assert.True(t, ok)
	assert.Equal(t, "red", p.Title)

	_, ok = data.PassageFor("B")
	assert.False(t, ok)

	c, ok := data.ChoiceAt(0)
	assert.True(t, ok)
	assert.Equal(t, "c0", c.Title)

	assert.Equal(t, []int{0}, data.Levels())
	assert.Equal(t, 1, data.PassageCount())
	assert.Equal(t, "end", data.Ending().Title)
}
