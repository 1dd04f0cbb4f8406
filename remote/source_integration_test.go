package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/timor11/librealsense/errors"
	"github.com/timor11/librealsense/natsclient"
	"github.com/timor11/librealsense/remote"
	"github.com/timor11/librealsense/testutil"
)

func TestIntegration_MetadataSource(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	_, natsURL := testutil.StartNATSContainer(ctx, t)

	client, err := natsclient.NewClient(natsURL)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	const subject = "rs.realsense.D435I_943222071234.metadata"
	source := remote.NewMetadataSource(client, subject, nil)

	received := make(chan remote.Metadata, 4)
	source.OnMetadataAvailable(func(m remote.Metadata) {
		received <- m
	})
	require.NoError(t, source.Start(ctx))

	// A valid record reaches the callback with its keys intact.
	err = client.Publish(ctx, subject, []byte(`{"stream-name": "Depth", "frame-number": 7}`))
	require.NoError(t, err)

	select {
	case m := <-received:
		name, ok := m.StreamName()
		assert.True(t, ok)
		assert.Equal(t, "Depth", name)
		assert.Equal(t, float64(7), m["frame-number"])
	case <-time.After(2 * time.Second):
		t.Fatal("metadata record not received")
	}

	// A malformed record is counted and dropped without reaching the callback.
	err = client.Publish(ctx, subject, []byte(`{"stream-name": `))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		recv, malformed := source.Stats()
		return recv == 2 && malformed == 1
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case m := <-received:
		t.Fatalf("malformed record should not be delivered, got %v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIntegration_MetadataSourceStartTwice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	_, natsURL := testutil.StartNATSContainer(ctx, t)

	client, err := natsclient.NewClient(natsURL)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	source := remote.NewMetadataSource(client, "rs.test.metadata", nil)
	require.NoError(t, source.Start(ctx))

	err = source.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrAlreadyStarted)
}
