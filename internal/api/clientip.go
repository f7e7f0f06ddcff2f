// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package api

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address: the first entry of
// X-Forwarded-For when present, otherwise the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	return PeerIP(r)
}

// PeerIP returns the host part of RemoteAddr, ignoring forwarding headers.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
