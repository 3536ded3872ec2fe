// Package wire defines the IDM wire format: packed, little-endian message
// headers and payload layouts shared bit-for-bit between zones.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wire
