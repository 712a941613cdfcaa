package scraper

import (
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrBlockedAddress is returned when a fetch would connect to a loopback,
// private, link-local or otherwise non-public address
var ErrBlockedAddress = goerr.New("address is not publicly routable")

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

// dialControl runs after name resolution, so every address actually dialed
// is checked, including redirect targets and rebound DNS answers
func dialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return goerr.Wrap(ErrBlockedAddress, "malformed dial address", goerr.V("address", address))
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !isPublicAddr(addr) {
		return goerr.Wrap(ErrBlockedAddress, "refusing to dial address",
			goerr.V("network", network), goerr.V("address", address))
	}
	return nil
}

// NewPublicClient returns an HTTP client that only connects to public
// addresses. Proxies are disabled so the check sees the real peer.
func NewPublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
