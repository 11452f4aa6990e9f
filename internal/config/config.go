// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultStoryFile 故事数据的默认位置（相对工作目录）
const DefaultStoryFile = "docs/FM_STORY.toml"

// Config 存储应用配置
type Config struct {
	Port           string
	StoryFile      string
	LogLevel       string
	LogEncoding    string
	LogFile        string
	DebugMode      bool
	RevealDelay    time.Duration // 文字逐段显示的间隔
	SessionTTL     time.Duration // 空闲会话的保留时间
	RateLimit      int           // 每个IP每分钟的API请求数，0表示不限制
	AllowedOrigins []string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	revealMS, err := getEnvInt("REVEAL_DELAY_MS", 50)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		StoryFile:      getEnv("STORY_FILE", DefaultStoryFile),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogEncoding:    getEnv("LOG_ENCODING", "console"),
		LogFile:        getEnv("LOG_FILE", ""),
		DebugMode:      getEnvBool("DEBUG_MODE", false),
		RevealDelay:    time.Duration(revealMS) * time.Millisecond,
		SessionTTL:     sessionTTL,
		RateLimit:      rateLimit,
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("无效的端口 %q: %w", c.Port, err)
	}
	if strings.TrimSpace(c.StoryFile) == "" {
		return fmt.Errorf("故事文件路径不能为空")
	}
	if c.RevealDelay < 0 {
		return fmt.Errorf("文字显示间隔不能为负数: %s", c.RevealDelay)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("请求限流不能为负数: %d", c.RateLimit)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("会话保留时间必须大于0: %s", c.SessionTTL)
	}
	switch strings.ToLower(c.LogEncoding) {
	case "json", "console":
	default:
		return fmt.Errorf("不支持的日志格式: %s", c.LogEncoding)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("环境变量 %s 不是整数: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("环境变量 %s 不是有效的时长: %w", key, err)
	}
	return d, nil
}

// getEnvList 读取逗号分隔的列表，忽略空项
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
