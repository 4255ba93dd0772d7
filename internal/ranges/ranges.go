// Package ranges implements a compact, sorted, indexable set of half-open
// intervals over a 32-bit key space. It backs both the target IPv4 list and
// the destination port list of a scan.
package ranges

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// Interval is a half-open range [Lo, Hi) of the 32-bit key space.
type Interval struct {
	Lo, Hi uint64

	// cum is the cumulative count of all elements in intervals strictly
	// before this one, so Pick can binary-search on it.
	cum uint64
}

// Width reports the number of elements covered by the interval.
func (iv Interval) Width() uint64 { return iv.Hi - iv.Lo }

// List is an immutable, sorted, coalesced set of intervals with O(log n)
// indexed picking.
type List struct {
	intervals []Interval
	total     uint64
}

// New builds a List from raw (possibly unsorted, possibly overlapping)
// intervals, sorting and coalescing them.
func New(raw []Interval) (*List, error) {
	for _, iv := range raw {
		if iv.Hi <= iv.Lo {
			return nil, fmt.Errorf("ranges: empty or inverted interval [%d,%d)", iv.Lo, iv.Hi)
		}
	}

	sorted := make([]Interval, len(raw))
	copy(sorted, raw)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lo < sorted[j].Lo })

	var coalesced []Interval
	for _, iv := range sorted {
		if n := len(coalesced); n > 0 && iv.Lo <= coalesced[n-1].Hi {
			if iv.Hi > coalesced[n-1].Hi {
				coalesced[n-1].Hi = iv.Hi
			}
			continue
		}
		coalesced = append(coalesced, Interval{Lo: iv.Lo, Hi: iv.Hi})
	}

	var total uint64
	for i := range coalesced {
		coalesced[i].cum = total
		total += coalesced[i].Width()
	}

	return &List{intervals: coalesced, total: total}, nil
}

// Count returns the total number of elements represented by the list.
func (l *List) Count() uint64 { return l.total }

// Intervals returns the coalesced, sorted intervals backing the list.
func (l *List) Intervals() []Interval {
	out := make([]Interval, len(l.intervals))
	copy(out, l.intervals)
	return out
}

// Pick returns the i-th element (0-indexed) in canonical order. It panics if
// i is out of range, since an out-of-range index is a programmer error, not
// a runtime condition callers are expected to recover from.
func (l *List) Pick(i uint64) uint32 {
	if i >= l.total {
		panic(fmt.Sprintf("ranges: pick index %d out of range (count=%d)", i, l.total))
	}
	n := sort.Search(len(l.intervals), func(k int) bool {
		iv := l.intervals[k]
		return iv.cum+iv.Width() > i
	})
	iv := l.intervals[n]
	return uint32(iv.Lo + (i - iv.cum))
}

// ParsePorts parses a comma-separated port-range spec: "N", "N-M" (inclusive
// on both ends). Ports are 16-bit; out-of-range values are rejected.
func ParsePorts(spec string) (*List, error) {
	var intervals []Interval
	for _, item := range splitItems(spec) {
		lo, hi, err := parseNumericItem(item, 0xFFFF)
		if err != nil {
			return nil, fmt.Errorf("ranges: invalid port item %q: %w", item, err)
		}
		intervals = append(intervals, Interval{Lo: lo, Hi: hi + 1})
	}
	return New(intervals)
}

// ParseIPv4 parses a comma-separated IPv4 target spec: a dotted-quad
// literal, a dotted-quad range "a.b.c.d-e.f.g.h" (inclusive), or a CIDR
// block.
func ParseIPv4(spec string) (*List, error) {
	var intervals []Interval
	for _, item := range splitItems(spec) {
		iv, err := parseIPv4Item(item)
		if err != nil {
			return nil, fmt.Errorf("ranges: invalid target item %q: %w", item, err)
		}
		intervals = append(intervals, iv)
	}
	return New(intervals)
}

func splitItems(spec string) []string {
	var out []string
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseNumericItem(item string, max uint64) (lo, hi uint64, err error) {
	if idx := strings.IndexByte(item, '-'); idx >= 0 {
		loStr, hiStr := item[:idx], item[idx+1:]
		lo, err = strconv.ParseUint(loStr, 10, 64)
		if err != nil {
			return 0, 0, err
		}
		hi, err = strconv.ParseUint(hiStr, 10, 64)
		if err != nil {
			return 0, 0, err
		}
	} else {
		lo, err = strconv.ParseUint(item, 10, 64)
		if err != nil {
			return 0, 0, err
		}
		hi = lo
	}
	if lo > max || hi > max || hi < lo {
		return 0, 0, fmt.Errorf("value out of range [0,%d]", max)
	}
	return lo, hi, nil
}

func parseIPv4Item(item string) (Interval, error) {
	if idx := strings.IndexByte(item, '/'); idx >= 0 {
		return parseCIDR(item)
	}
	if idx := strings.IndexByte(item, '-'); idx >= 0 {
		loIP, err := parseDottedQuad(item[:idx])
		if err != nil {
			return Interval{}, err
		}
		hiIP, err := parseDottedQuad(item[idx+1:])
		if err != nil {
			return Interval{}, err
		}
		if hiIP < loIP {
			return Interval{}, fmt.Errorf("range end before start")
		}
		return Interval{Lo: uint64(loIP), Hi: uint64(hiIP) + 1}, nil
	}
	ip, err := parseDottedQuad(item)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Lo: uint64(ip), Hi: uint64(ip) + 1}, nil
}

func parseCIDR(item string) (Interval, error) {
	_, ipnet, err := net.ParseCIDR(item)
	if err != nil {
		return Interval{}, err
	}
	v4 := ipnet.IP.To4()
	if v4 == nil {
		return Interval{}, fmt.Errorf("not an IPv4 CIDR")
	}
	base := ipToUint32(v4)
	ones, bits := ipnet.Mask.Size()
	if bits != 32 {
		return Interval{}, fmt.Errorf("not an IPv4 mask")
	}
	width := uint64(1) << uint(32-ones)
	return Interval{Lo: uint64(base), Hi: uint64(base) + width}, nil
}

func parseDottedQuad(s string) (uint32, error) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("not an IPv4 address %q", s)
	}
	return ipToUint32(v4), nil
}

func ipToUint32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// Uint32ToIP converts a host-order 32-bit key back to a net.IP, for callers
// that picked a target out of a List built by ParseIPv4.
func Uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
