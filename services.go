package sxgeo

import (
	"encoding/binary"
	"net/netip"
)

// ipV4ToInt - dotted-quad IPv4 text to big-endian uint32
func ipV4ToInt(ip string) (uint32, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), true
}

// IsIPv4 - true for a syntactically valid dotted-quad IPv4 address
func IsIPv4(ip string) bool {
	_, ok := ipV4ToInt(ip)
	return ok
}
