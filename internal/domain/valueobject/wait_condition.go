package valueobject

import (
	"fmt"
	"strings"
)

// WaitCondition names the "page ready" condition navigation waits for before
// a capture is taken.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
	WaitCommit           WaitCondition = "commit"
)

// ParseWaitCondition validates a caller-supplied ready condition. An empty
// value selects networkidle, which gives the most settled capture for pages
// that load resources from script.
func ParseWaitCondition(raw string) (WaitCondition, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return WaitNetworkIdle, nil
	}

	switch WaitCondition(value) {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle, WaitCommit:
		return WaitCondition(value), nil
	}

	return "", fmt.Errorf("unsupported waitUntil value: %s", raw)
}
