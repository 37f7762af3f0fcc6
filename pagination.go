package githubapp

import (
	"context"
	"net/http"
	"strings"
)

// listPages follows rel="next" links from path until exhausted, one request per page
// The returned slice is never nil
func listPages[P any, T any](ctx context.Context, c *Client, path, credential string, items func(P) []T) ([]T, error) {
	all := []T{}
	next := path
	for next != "" {
		var page P
		header, err := c.do(ctx, http.MethodGet, next, credential, nil, &page)
		if err != nil {
			return all, err
		}
		all = append(all, items(page)...)
		next = parseLinkNext(header.Get("Link"))
	}
	return all, nil
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link header
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	if header == "" {
		return ""
	}

	for _, part := range strings.Split(header, ",") {
		segments := strings.SplitN(strings.TrimSpace(part), ";", 2)
		if len(segments) != 2 {
			continue
		}

		urlPart := strings.TrimSpace(segments[0])
		if !strings.Contains(segments[1], `rel="next"`) {
			continue
		}

		if strings.HasPrefix(urlPart, "<") && strings.HasSuffix(urlPart, ">") {
			return urlPart[1 : len(urlPart)-1]
		}
	}

	return ""
}
