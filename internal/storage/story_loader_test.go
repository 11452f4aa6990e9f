package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/models"
)

// storyTOML 生成一份完整的故事文件，skip 中的键（"choice.N" 或路径编码）不会写出
func storyTOML(skip ...string) string {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var b strings.Builder
	b.WriteString("[FM_START]\ntitle = \"开始\"\nstory = \"故事开始。\"\n\n")
	b.WriteString("[FM_NOEND]\ntitle = \"终章\"\nstory = \"所有的路都通向这里。\"\n\n")
	for level := 0; level < models.MaxLevel; level++ {
		if skipped[fmt.Sprintf("choice.%d", level)] {
			continue
		}
		fmt.Fprintf(&b, "[FM_CHOICE.%d]\ntitle = \"第%d层\"\nstory = \"抉择%d\"\nred = \"红%d\"\nblue = \"蓝%d\"\n\n",
			level, level+1, level, level, level)
	}
	b.WriteString("[FM_STORY]\n")
	codes := []string{""}
	for depth := 1; depth < models.MaxLevel; depth++ {
		var next []string
		for _, prefix := range codes {
			for _, symbol := range []string{"R", "B"} {
				code := prefix + symbol
				next = append(next, code)
				if skipped[code] {
					continue
				}
				fmt.Fprintf(&b, "[FM_STORY.%s]\ntitle = \"路径%s\"\nstory = \"你走到了%s。\"\n\n", code, code, code)
			}
		}
		codes = next
	}
	return b.String()
}

func writeStory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "FM_STORY.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileComplete(t *testing.T) {
	loader := NewStoryLoader(zap.NewNop())
	story, err := loader.LoadFile(writeStory(t, storyTOML()))
	require.NoError(t, err)

	assert.Equal(t, "开始", story.Start().Title)
	assert.Equal(t, "终章", story.Ending().Title)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, story.Levels())
	assert.Equal(t, 62, story.PassageCount())

	p, ok := story.PassageFor("RBRBR")
	require.True(t, ok)
	assert.Equal(t, "路径RBRBR", p.Title)

	c, ok := story.ChoiceAt(3)
	require.True(t, ok)
	assert.Equal(t, "红3", c.Red)
	assert.Equal(t, "蓝3", c.Blue)
}

func TestLoadFileNotFound(t *testing.T) {
	loader := NewStoryLoader(nil)
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestParseMalformed(t *testing.T) {
	loader := NewStoryLoader(zap.NewNop())

	cases := map[string]string{
		"invalid toml":        "[FM_START\ntitle = ",
		"wrong field type":    strings.Replace(storyTOML(), "title = \"开始\"", "title = 42", 1),
		"missing field":       strings.Replace(storyTOML(), "red = \"红2\"\n", "", 1),
		"missing level":       storyTOML("choice.4"),
		"missing start":       strings.Replace(storyTOML(), "[FM_START]\ntitle = \"开始\"\nstory = \"故事开始。\"\n", "", 1),
		"missing ending":      strings.Replace(storyTOML(), "[FM_NOEND]\ntitle = \"终章\"\nstory = \"所有的路都通向这里。\"\n", "", 1),
		"bad level key":       storyTOML() + "[FM_CHOICE.first]\ntitle = \"x\"\nstory = \"x\"\nred = \"x\"\nblue = \"x\"\n",
		"bad path symbol":     storyTOML() + "[FM_STORY.RX]\ntitle = \"x\"\nstory = \"x\"\n",
		"path longer than 6":  storyTOML() + "[FM_STORY.RRRRRRR]\ntitle = \"x\"\nstory = \"x\"\n",
		"signed level key":    storyTOML() + "[FM_CHOICE.\"+1\"]\ntitle = \"x\"\nstory = \"x\"\nred = \"x\"\nblue = \"x\"\n",
		"unknown field":       strings.Replace(storyTOML(), "story = \"故事开始。\"\n", "story = \"故事开始。\"\nmood = \"x\"\n", 1),
		"unknown section":     storyTOML() + "[FM_EXTRA]\ntitle = \"x\"\n",
	}
	// 没有任何 FM_STORY 条目时整张表都不存在
	var noStory strings.Builder
	for _, line := range strings.SplitAfter(storyTOML(), "\n\n") {
		if !strings.HasPrefix(line, "[FM_STORY") {
			noStory.WriteString(line)
		}
	}
	cases["missing story table"] = noStory.String()

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Parse([]byte(content), name)
			require.Error(t, err)
			assert.True(t, apperrors.IsMalformedError(err), "got %v", err)
		})
	}
}

func TestParseRejectsCollidingLevelKeys(t *testing.T) {
	loader := NewStoryLoader(zap.NewNop())
	content := storyTOML() + "[FM_CHOICE.\"01\"]\ntitle = \"重复\"\nstory = \"x\"\nred = \"x\"\nblue = \"x\"\n"

	// map 遍历顺序随机，多次解析结果必须一致
	for i := 0; i < 20; i++ {
		story, err := loader.Parse([]byte(content), "test")
		require.Error(t, err)
		assert.Nil(t, story)
		assert.True(t, apperrors.IsMalformedError(err), "got %v", err)
		assert.Contains(t, err.Error(), `"01"`)
	}
}

func TestParseIgnoresUnreachableEntries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	loader := NewStoryLoader(zap.New(core))

	content := storyTOML() +
		"[FM_STORY.RBRBRB]\ntitle = \"不可达\"\nstory = \"x\"\n\n" +
		"[FM_CHOICE.6]\ntitle = \"x\"\nstory = \"x\"\nred = \"x\"\nblue = \"x\"\n"
	story, err := loader.Parse([]byte(content), "test")
	require.NoError(t, err)

	assert.False(t, story.HasPassage("RBRBRB"))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, story.Levels())
	assert.Equal(t, 1, logs.FilterMessage("忽略不可达的完整路径故事").Len())
	assert.Equal(t, 1, logs.FilterMessage("忽略不可达的选择层级").Len())
}

func TestParseWarnsOnGaps(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	loader := NewStoryLoader(zap.New(core))

	story, err := loader.Parse([]byte(storyTOML("AB", "RB", "BBBBB")), "test")
	require.NoError(t, err)
	assert.False(t, story.HasPassage("RB"))

	entries := logs.FilterMessage("部分可达路径没有对应的故事，将显示为内容缺失").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].ContextMap()["missing"])
}

// reachableCodes 长度 1..5 的全部路径编码
func reachableCodes() []string {
	var all []string
	codes := []string{""}
	for depth := 1; depth < models.MaxLevel; depth++ {
		var next []string
		for _, p := range codes {
			next = append(next, p+"R", p+"B")
		}
		all = append(all, next...)
		codes = next
	}
	return all
}

func TestMissingPrefixes(t *testing.T) {
	assert.Len(t, missingPrefixes(map[string]models.Passage{}), 62)

	all := map[string]models.Passage{}
	for _, code := range reachableCodes() {
		all[code] = models.Passage{}
	}
	delete(all, "B")
	delete(all, "RRBRB")
	assert.Equal(t, []string{"B", "RRBRB"}, missingPrefixes(all))
}

func TestLoadBundledStory(t *testing.T) {
	story, err := NewStoryLoader(zap.NewNop()).LoadFile(filepath.Join("..", "..", "docs", "FM_STORY.toml"))
	require.NoError(t, err)
	assert.Len(t, story.Levels(), models.MaxLevel)
	assert.Equal(t, 62, story.PassageCount())
	for _, code := range reachableCodes() {
		assert.True(t, story.HasPassage(code), code)
	}
}
