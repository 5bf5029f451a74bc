package util

import (
	"net"
)

// IsValidIP checks if a string is an IPv4 or IPv6 address
func IsValidIP(s string) bool {
	return net.ParseIP(s) != nil
}

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// IsValidCIDR checks if a string is prefix/length notation
func IsValidCIDR(s string) bool {
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

// CanonicalPrefix returns the network form of a CIDR (10.1.1.1/24 becomes
// 10.1.1.0/24). ok is false if s is not CIDR notation.
func CanonicalPrefix(s string) (prefix string, ok bool) {
	_, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return "", false
	}
	return ipNet.String(), true
}

// PrefixLen returns the length of a dotted-quad netmask, or -1 if the mask
// is not contiguous
func PrefixLen(mask net.IP) int {
	m := net.IPMask(mask.To4())
	if m == nil {
		return -1
	}
	ones, bits := m.Size()
	if bits == 0 {
		return -1
	}
	return ones
}
