package testsupport

import (
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"
)

// Network is an http.RoundTripper that can simulate losing connectivity.
// While offline every request fails the way a refused dial does.
type Network struct {
	base http.RoundTripper

	mu        sync.Mutex
	offline   bool
	allowance int // requests left before going offline; -1 means unlimited
	latency   time.Duration
	requests  []string
}

func NewNetwork() *Network {
	return &Network{base: http.DefaultTransport, allowance: -1}
}

// Client returns an http.Client routed through the network.
func (n *Network) Client() *http.Client {
	return &http.Client{Transport: n}
}

func (n *Network) SetOffline(offline bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offline = offline
	n.allowance = -1
}

// SetLatency delays every request that reaches the server by d.
func (n *Network) SetLatency(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.latency = d
}

// FailAfter lets the next count requests through and then goes offline.
func (n *Network) FailAfter(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offline = false
	n.allowance = count
}

// Requests returns "METHOD /path" for every request that reached the server.
func (n *Network) Requests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.requests))
	copy(out, n.requests)
	return out
}

func (n *Network) RoundTrip(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	if n.allowance == 0 {
		n.offline = true
		n.allowance = -1
	}
	if n.allowance > 0 {
		n.allowance--
	}
	offline := n.offline
	latency := n.latency
	if !offline {
		n.requests = append(n.requests, req.Method+" "+req.URL.RequestURI())
	}
	n.mu.Unlock()

	if offline {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
	if latency > 0 {
		time.Sleep(latency)
	}
	return n.base.RoundTrip(req)
}
