package app

import (
	"net/url"
	"strings"
)

const binaryParametersKey = "binary_parameters"

// normalizeDBURL turns on lib/pq binary parameters so queries run without the
// extra prepare round trip, which keeps them usable behind transaction pooling
// proxies. An explicit value in the URL wins.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	if !disablePreparedBinaryResult {
		return raw
	}

	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		if strings.Contains(trimmed, binaryParametersKey+"=") || trimmed == "" {
			return raw
		}
		return trimmed + " " + binaryParametersKey + "=yes"
	}

	query := parsed.Query()
	if query.Get(binaryParametersKey) == "" {
		query.Set(binaryParametersKey, "yes")
		parsed.RawQuery = query.Encode()
	}

	return parsed.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")); name != "" {
			return name
		}
	}

	for _, token := range strings.Fields(trimmed) {
		name, ok := strings.CutPrefix(token, "dbname=")
		if !ok {
			continue
		}
		if name = strings.Trim(strings.TrimSpace(name), `"'`); name != "" {
			return name
		}
	}

	return ""
}
