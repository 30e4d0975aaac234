package services

import (
	"log"
	"sync"
)

// The shared client is process-wide: many consumers, at most one live
// connection. A reference count tracks active consumers so a transient
// release/re-acquire (a dashboard remount) does not thrash the
// connection.
var (
	sharedMu     sync.Mutex
	sharedClient *RPCClient
	sharedRefs   int
)

// AcquireClient returns the process-wide transport client, creating it
// on first acquisition. Endpoint and options are only consulted when
// the client is created; later acquirers share the existing instance.
func AcquireClient(endpoint string, opts RPCOptions) (*RPCClient, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedClient == nil {
		c, err := NewRPCClient(endpoint, opts)
		if err != nil {
			return nil, err
		}
		sharedClient = c
	}
	sharedRefs++
	return sharedClient, nil
}

// ReleaseClient drops one reference. The underlying connection is torn
// down only when the last consumer releases.
func ReleaseClient() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedRefs == 0 {
		log.Printf("[RPC] release without matching acquire")
		return
	}
	sharedRefs--
	if sharedRefs == 0 && sharedClient != nil {
		sharedClient.Disconnect()
		sharedClient = nil
	}
}
