package app

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/FutureGate/internal/config"
	"github.com/Corphon/FutureGate/internal/di"
	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/services"
)

func testConfig(storyFile string) *config.Config {
	return &config.Config{
		Port:        "0",
		StoryFile:   storyFile,
		LogLevel:    "debug",
		LogEncoding: "console",
		RevealDelay: time.Millisecond,
		SessionTTL:  time.Minute,
	}
}

func TestNewLoadsBundledStory(t *testing.T) {
	a, err := New(testConfig("../../docs/FM_STORY.toml"), nil)
	require.NoError(t, err)

	story, err := di.Resolve[*services.StoryService](a.Container(), di.ServiceStory)
	require.NoError(t, err)
	assert.Len(t, story.ReachablePaths(), 62)

	for _, name := range []string{di.ServiceConfig, di.ServiceLogger, di.ServiceSessions, di.ServiceWebSocket} {
		assert.True(t, a.Container().Has(name), name)
	}
}

func TestNewRefusesMissingStory(t *testing.T) {
	_, err := New(testConfig(filepath.Join(t.TempDir(), "absent.toml")), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "加载故事数据失败")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewRefusesMalformedStory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[FM_START]\ntitle = 3\n"), 0644))

	_, err := New(testConfig(path), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedError(err))
	assert.Contains(t, err.Error(), "加载故事数据失败")
}

func TestHandlerServesHealth(t *testing.T) {
	a, err := New(testConfig("../../docs/FM_STORY.toml"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler, err := a.Handler(ctx)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"passages":62`)
}
