package musecli

import (
	"fmt"
	"strings"
)

// splitRemoteURL splits a "http://host:port/owner/slug" remote URL into
// the server's base URL and the repo's "owner/slug" id, the scheme a
// clone URL packs both identifiers into a single argument.
func splitRemoteURL(raw string) (baseURL, repoID string, err error) {
	const sep = "://"

	idx := strings.Index(raw, sep)
	if idx < 0 {
		return "", "", fmt.Errorf("invalid remote url: %s", raw)
	}

	scheme := raw[:idx+len(sep)]
	rest := raw[idx+len(sep):]

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("remote url must include owner/slug: %s", raw)
	}

	slugParts := strings.SplitN(parts[1], "/", 2)
	if len(slugParts) != 2 {
		return "", "", fmt.Errorf("remote url must include owner/slug: %s", raw)
	}

	baseURL = scheme + parts[0]
	repoID = slugParts[0] + "/" + slugParts[1]

	return baseURL, repoID, nil
}
