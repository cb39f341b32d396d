package storyowl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/storyowl/storyowl/ai/mock"
	"github.com/storyowl/storyowl/chat"
	"github.com/storyowl/storyowl/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		engine, err := NewEngine(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, engine)
		defer engine.Close()

		// Verify components are initialized
		assert.NotNil(t, engine.ItemRepository())
		assert.NotNil(t, engine.ProfileRepository())
		assert.NotNil(t, engine.SessionRepository())
		assert.NotNil(t, engine.Embedder())
		assert.NotNil(t, engine.backend)
		assert.NotNil(t, engine.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to open the backend at a file path instead of a directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		engine, err := NewEngine(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, engine)
	})

	t.Run("in-memory storage", func(t *testing.T) {
		engine, err := NewEngine("", WithInMemoryStorage())
		require.NoError(t, err)
		require.NotNil(t, engine)
		assert.NoError(t, engine.Close())
	})
}

func TestEngine_FactoryMethods(t *testing.T) {
	engine, err := NewEngine("", WithInMemoryStorage(), WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer engine.Close()

	t.Run("can create ingest pipeline", func(t *testing.T) {
		pipeline, err := engine.NewIngestPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create profile rebuilder", func(t *testing.T) {
		rebuilder, err := engine.NewProfileRebuilder()
		require.NoError(t, err)
		require.NotNil(t, rebuilder)
	})

	t.Run("can create retriever and orchestrator", func(t *testing.T) {
		retriever, err := engine.NewRetriever()
		require.NoError(t, err)
		defer retriever.Release()

		orchestrator, err := engine.NewOrchestrator(retriever)
		require.NoError(t, err)
		require.NotNil(t, orchestrator)
	})
}

func TestEngine_EndToEndTurn(t *testing.T) {
	provider := mock.NewMockProvider()
	engine, err := NewEngine("", WithInMemoryStorage(), WithAIProvider(provider))
	require.NoError(t, err)
	defer engine.Close()

	pipeline, err := engine.NewIngestPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	items := make([]*core.Item, 4)
	for i := range items {
		items[i] = &core.Item{
			SourceId: fmt.Sprintf("dino-%d", i),
			Kind:     core.KindBook,
			Title:    fmt.Sprintf("The Big Dino Book %d", i),
			Tags:     []string{"dinosaurs"},
		}
	}
	stored, err := pipeline.Ingest(context.Background(), items...)
	require.NoError(t, err)
	require.Len(t, stored, 4)

	retriever, err := engine.NewRetriever()
	require.NoError(t, err)
	defer retriever.Release()

	orchestrator, err := engine.NewOrchestrator(retriever)
	require.NoError(t, err)

	reply, err := orchestrator.Respond(context.Background(), &chat.Request{
		UserId:     "u1",
		SessionKey: "s1",
		Text:       "dinosaur books",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Outcome)
}
