package sinks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/storage/badger"
)

func TestStoreSinkPersistsRecord(t *testing.T) {
	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	sink := NewStoreSink(manager.RecordStorage(), arbor.NewLogger())
	assert.Equal(t, "store", sink.Name())

	require.NoError(t, sink.Deliver(context.Background(), sampleJob("an_store"), sampleRecord("an_store")))

	loaded, err := manager.RecordStorage().GetRecord("an_store")
	require.NoError(t, err)
	assert.Equal(t, "Acme Plumbing", loaded.AIAnalysis.BusinessName)
	assert.Equal(t, "an_store", loaded.Metadata.AnalysisID)
}
