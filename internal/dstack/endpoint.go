package dstack

import "strings"

const unixPrefix = "unix://"

type EndpointKind int

const (
	EndpointHTTP EndpointKind = iota
	EndpointUnixSocket
)

// Endpoint identifies the dstack backend. It is built once from the
// configured URL string and never changes for the lifetime of the process.
type Endpoint struct {
	Kind       EndpointKind
	BaseURL    string
	SocketPath string
}

// ParseEndpoint selects the transport from the URL shape: a unix:// prefix
// selects the unix-socket transport, anything else is treated as an HTTP
// base URL.
func ParseEndpoint(raw string) Endpoint {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, unixPrefix) {
		return Endpoint{
			Kind:       EndpointUnixSocket,
			SocketPath: strings.TrimPrefix(raw, unixPrefix),
		}
	}
	return Endpoint{
		Kind:    EndpointHTTP,
		BaseURL: strings.TrimRight(raw, "/"),
	}
}

func (e Endpoint) String() string {
	if e.Kind == EndpointUnixSocket {
		return unixPrefix + e.SocketPath
	}
	return e.BaseURL
}
