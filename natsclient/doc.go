// Package natsclient provides the NATS connection shared by proxy components,
// with automatic reconnection and context propagation on all operations.
//
// The package wraps the standard NATS Go client with status tracking,
// lifecycle callbacks, and subscription bookkeeping. Metadata intake, the
// build log publisher and the gateway broadcast all run over a single Client;
// connection lifecycle belongs to whoever constructed it, and components
// receiving a client never reconnect on their own.
//
// # Basic Usage
//
// Creating and connecting to NATS:
//
//	client, err := natsclient.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	err = client.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	// Publish a message
//	err = client.Publish(ctx, "rs.log.943222071234", []byte("device ready"))
//
//	// Subscribe to messages
//	err = client.Subscribe(ctx, "rs.realsense.D435_943222071234.metadata", func(msgCtx context.Context, data []byte) {
//	    // Handle message with context (30s timeout per message)
//	})
//
// # Configuration
//
// Creating a client with options:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithMaxReconnects(-1),  // Infinite reconnects
//	    natsclient.WithReconnectWait(2*time.Second),
//	    natsclient.WithName("rs-proxyd"),
//	    natsclient.WithDisconnectCallback(func(err error) {
//	        log.Printf("Disconnected: %v", err)
//	    }),
//	)
//
// # Connection Status
//
// The client tracks its state through the lifecycle
// Disconnected → Connecting → Connected → Reconnecting → Connected:
//
//	status := client.Status()
//	switch status {
//	case natsclient.StatusConnected:
//	    // Healthy and ready
//	case natsclient.StatusReconnecting:
//	    // Temporarily disconnected, reconnecting
//	case natsclient.StatusDisconnected:
//	    // Not connected
//	}
//
//	// Wait for connection
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	err := client.WaitForConnection(ctx)
//
// Publish and Subscribe return errors.ErrNoConnection when called before
// Connect or after the connection is lost; the error classifies as transient.
//
// # Thread Safety
//
// The Client type is safe for concurrent use from multiple goroutines.
// Connection state is managed with atomic operations and mutexes, and Close
// can be called more than once (subsequent calls are no-ops). Credentials
// are cleared from memory when the client is closed.
//
// # Testing
//
// Integration tests use a real NATS server via testcontainers rather than
// mocks, covering the actual connection lifecycle and message delivery.
package natsclient
