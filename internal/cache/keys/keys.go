// Package keys derives deterministic cache keys from WFS requests.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "wfs"

// Principal identifies the credentials a response was fetched with. The
// password only enters as a SHA-256 digest. Anonymous access is "".
func Principal(username, password string) string {
	if username == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return username + "/" + hex.EncodeToString(sum[:])
}

// Key identifies one response: the endpoint, the canonical KVP request and
// the principal that fetched it. Parameter names compare case-insensitively,
// as in OGC KVP encoding.
func Key(endpoint string, params url.Values, principal string) string {
	canon := canonical(params)
	layer := sanitizeForKey(firstValue(params, "typeNames", "typeName"))

	const maxLayerLen = 120
	if len(layer) > maxLayerLen {
		layer = layer[:maxLayerLen]
	}

	sum := xxhash.Sum64String(normalizeEndpoint(endpoint) + "?" + canon + "#" + principal)
	return fmt.Sprintf("%s:%s:h=%016x", prefix, layer, sum)
}

func canonical(params url.Values) string {
	lowered := make(map[string][]string, len(params))
	for k, vs := range params {
		lk := strings.ToLower(strings.TrimSpace(k))
		for _, v := range vs {
			lowered[lk] = append(lowered[lk], strings.TrimSpace(v))
		}
	}
	names := make([]string, 0, len(lowered))
	for k := range lowered {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, k := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(strings.Join(lowered[k], ",")))
	}
	return b.String()
}

func normalizeEndpoint(endpoint string) string {
	return strings.TrimRight(strings.TrimSpace(endpoint), "/")
}

func firstValue(params url.Values, names ...string) string {
	for _, n := range names {
		for k, vs := range params {
			if strings.EqualFold(k, n) && len(vs) > 0 {
				return strings.TrimSpace(vs[0])
			}
		}
	}
	return ""
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
