// Package dcaddr resolves a datacenter id to the TCP address a carrier
// dials, using Telegram's published production and test DC endpoints
// when mtconfig.DCConfig.Address does not override them.
package dcaddr

import "fmt"

// production holds the well-known IPv4 endpoints for Telegram's
// production datacenters, as published for third-party MTProto clients.
var production = map[int32]string{
	1: "149.154.175.50:443",
	2: "149.154.167.51:443",
	3: "149.154.175.100:443",
	4: "149.154.167.91:443",
	5: "91.108.56.130:443",
}

// test holds the -1 test-DC endpoints.
var test = map[int32]string{
	1: "149.154.175.10:443",
	2: "149.154.167.40:443",
	3: "149.154.175.117:443",
}

// Resolve returns the address to dial for dcID. If override is
// non-empty it wins outright (the operator-supplied mtconfig.DCConfig.Address
// case); otherwise the built-in production or test table is consulted
// depending on useTest.
func Resolve(dcID int32, useTest bool, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	table := production
	if useTest {
		table = test
	}

	addr, ok := table[dcID]
	if !ok {
		return "", fmt.Errorf("dcaddr: no known address for dc %d (test=%v), set dc.address explicitly", dcID, useTest)
	}
	return addr, nil
}
