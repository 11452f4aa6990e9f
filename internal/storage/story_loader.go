// internal/storage/story_loader.go
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/models"
)

// storyDocument 故事 TOML 文件的结构
type storyDocument struct {
	Choices  map[string]models.ChoicePrompt `toml:"FM_CHOICE" validate:"required,dive"`
	Passages map[string]models.Passage      `toml:"FM_STORY" validate:"required,dive"`
	Start    *models.Passage                `toml:"FM_START" validate:"required"`
	Ending   *models.Passage                `toml:"FM_NOEND" validate:"required"`
}

// StoryLoader 读取并校验故事数据，要么返回完整的数据集，要么返回错误
type StoryLoader struct {
	logger   *zap.Logger
	validate *validator.Validate
}

// NewStoryLoader 创建故事加载器
func NewStoryLoader(logger *zap.Logger) *StoryLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoryLoader{
		logger:   logger.Named("story_loader"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadFile 从文件加载故事数据
func (l *StoryLoader) LoadFile(path string) (*models.StoryData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("故事文件不存在: %s", path), err)
		}
		return nil, apperrors.NewProcessingError(fmt.Sprintf("读取故事文件失败: %s", path), err)
	}

	story, err := l.Parse(data, path)
	if err != nil {
		return nil, err
	}

	l.logger.Info("故事数据加载完成",
		zap.String("path", path),
		zap.Int("levels", len(story.Levels())),
		zap.Int("passages", story.PassageCount()))
	return story, nil
}

// Parse 解析 TOML 内容，source 只用于日志和错误信息
func (l *StoryLoader) Parse(data []byte, source string) (*models.StoryData, error) {
	var doc storyDocument
	decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, apperrors.NewMalformedError(fmt.Sprintf("解析故事文件失败: %s", source), err)
	}

	if err := l.validate.Struct(&doc); err != nil {
		return nil, apperrors.NewMalformedError(fmt.Sprintf("故事文件缺少必填字段: %s", source), describeValidation(err))
	}

	choices, err := l.buildChoices(doc.Choices)
	if err != nil {
		return nil, err
	}
	passages, err := l.buildPassages(doc.Passages)
	if err != nil {
		return nil, err
	}

	if missing := missingPrefixes(passages); len(missing) > 0 {
		l.logger.Warn("部分可达路径没有对应的故事，将显示为内容缺失",
			zap.String("source", source),
			zap.Int("missing", len(missing)),
			zap.Strings("examples", missing[:min(len(missing), 8)]))
	}

	return models.NewStoryData(*doc.Start, *doc.Ending, choices, passages), nil
}

// buildChoices 校验层级键，0..5 必须齐全。
// 键必须是规范的十进制写法，"01"、"+1" 这类会与 "1" 冲突的写法视为格式错误。
func (l *StoryLoader) buildChoices(raw map[string]models.ChoicePrompt) (map[int]models.ChoicePrompt, error) {
	choices := make(map[int]models.ChoicePrompt, models.MaxLevel)
	for key, prompt := range raw {
		level, err := strconv.Atoi(key)
		if err != nil || level < 0 || strconv.Itoa(level) != key {
			return nil, apperrors.NewMalformedError(fmt.Sprintf("FM_CHOICE 的层级键无效: %q", key), err)
		}
		if level >= models.MaxLevel {
			l.logger.Warn("忽略不可达的选择层级", zap.Int("level", level))
			continue
		}
		choices[level] = prompt
	}

	var missing []string
	for level := 0; level < models.MaxLevel; level++ {
		if _, ok := choices[level]; !ok {
			missing = append(missing, strconv.Itoa(level))
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMalformedError(
			fmt.Sprintf("FM_CHOICE 缺少层级: %s", strings.Join(missing, ", ")), nil)
	}
	return choices, nil
}

// buildPassages 校验路径键只由决定编码组成
func (l *StoryLoader) buildPassages(raw map[string]models.Passage) (map[string]models.Passage, error) {
	passages := make(map[string]models.Passage, len(raw))
	for code, passage := range raw {
		if err := validatePathCode(code); err != nil {
			return nil, apperrors.NewMalformedError(fmt.Sprintf("FM_STORY 的路径键无效: %q", code), err)
		}
		// 第6层统一显示结局，这样的条目永远不会被读取
		if len(code) == models.MaxLevel {
			l.logger.Warn("忽略不可达的完整路径故事", zap.String("path", code))
			continue
		}
		passages[code] = passage
	}
	return passages, nil
}

func validatePathCode(code string) error {
	if code == "" {
		return errors.New("路径为空")
	}
	if len(code) > models.MaxLevel {
		return fmt.Errorf("路径长度 %d 超过 %d", len(code), models.MaxLevel)
	}
	for i := 0; i < len(code); i++ {
		if _, ok := models.DecisionFromSymbol(code[i]); !ok {
			return fmt.Errorf("第 %d 个字符 %q 不是有效的选择", i+1, code[i])
		}
	}
	return nil
}

// missingPrefixes 列出长度 1..5 中没有故事的路径
func missingPrefixes(passages map[string]models.Passage) []string {
	var missing []string
	frontier := []string{""}
	for depth := 1; depth < models.MaxLevel; depth++ {
		next := make([]string, 0, len(frontier)*2)
		for _, prefix := range frontier {
			for _, d := range models.AllDecisions() {
				code := prefix + d.String()
				if _, ok := passages[code]; !ok {
					missing = append(missing, code)
				}
				next = append(next, code)
			}
		}
		frontier = next
	}
	slices.Sort(missing)
	return missing
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(fields, "; "))
}
