// Package udp owns the datagram socket driven by the send engine and
// the raw destination encodings handed to the kernel.
package udp

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Socket owns a datagram descriptor. Close releases it exactly once;
// a closed socket reports fd -1.
type Socket struct {
	fd int
}

// Open creates an unbound UDP socket. v6 selects the address family,
// it must match the destination the socket will send to.
func Open(v6 bool) (*Socket, error) {
	domain := unix.AF_INET
	if v6 {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_DGRAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	return &Socket{fd: fd}, nil
}

func (s *Socket) Fd() int {
	return s.fd
}

// Bind attaches the socket to a local address. Port 0 lets the kernel
// pick one, see Port.
func (s *Socket) Bind(ap netip.AddrPort) error {
	var sa unix.Sockaddr
	if ap.Addr().Is4() {
		sa = &unix.SockaddrInet4{Port: int(ap.Port()), Addr: ap.Addr().As4()}
	} else {
		sa = &unix.SockaddrInet6{Port: int(ap.Port()), Addr: ap.Addr().As16()}
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return fmt.Errorf("bind %s: %w", ap, err)
	}
	return nil
}

// Port returns the local port the socket is bound to.
func (s *Socket) Port() (uint16, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return uint16(sa.Port), nil
	case *unix.SockaddrInet6:
		return uint16(sa.Port), nil
	}
	return 0, fmt.Errorf("getsockname: not an inet socket")
}

// Close releases the descriptor. The fd is invalidated before the
// close call so a second Close is a no-op even if the first returned
// an error.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	return unix.Close(fd)
}

// Sockaddr is a destination in the raw sockaddr encoding submissions
// point at. The backing bytes stay alive as long as the Sockaddr, the
// kernel reads them while sends are in flight.
type Sockaddr struct {
	raw []byte
	ap  netip.AddrPort
}

// ParseSockaddr parses "host:port" ("[host]:port" for v6) into a
// kernel-ready destination.
func ParseSockaddr(hostport string) (*Sockaddr, error) {
	ap, err := netip.ParseAddrPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("destination %q: %w", hostport, err)
	}
	return FromAddrPort(ap), nil
}

// FromAddrPort encodes an address into the matching raw sockaddr.
// sin_port is big endian within an otherwise native-order struct.
func FromAddrPort(ap netip.AddrPort) *Sockaddr {
	if ap.Addr().Is4() {
		var sa unix.RawSockaddrInet4
		sa.Family = unix.AF_INET
		sa.Addr = ap.Addr().As4()
		binary.BigEndian.PutUint16((*[2]byte)(unsafe.Pointer(&sa.Port))[:], ap.Port())
		raw := make([]byte, unix.SizeofSockaddrInet4)
		copy(raw, (*(*[unix.SizeofSockaddrInet4]byte)(unsafe.Pointer(&sa)))[:])
		return &Sockaddr{raw: raw, ap: ap}
	}
	var sa unix.RawSockaddrInet6
	sa.Family = unix.AF_INET6
	sa.Addr = ap.Addr().As16()
	binary.BigEndian.PutUint16((*[2]byte)(unsafe.Pointer(&sa.Port))[:], ap.Port())
	raw := make([]byte, unix.SizeofSockaddrInet6)
	copy(raw, (*(*[unix.SizeofSockaddrInet6]byte)(unsafe.Pointer(&sa)))[:])
	return &Sockaddr{raw: raw, ap: ap}
}

// Raw returns the encoded sockaddr for SQE population.
func (s *Sockaddr) Raw() []byte {
	return s.raw
}

func (s *Sockaddr) IsV6() bool {
	return !s.ap.Addr().Is4()
}

func (s *Sockaddr) AddrPort() netip.AddrPort {
	return s.ap
}

func (s *Sockaddr) String() string {
	return s.ap.String()
}
