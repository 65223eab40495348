package space

import (
	"encoding/json"
	"strings"
)

// outputPayload turns the first element of a result envelope into something
// the normalizer can resolve: an absolute URL, a data URL or raw base64.
// Objects expose "url" or "path"; a bare path is served under FileURL.
func (c *Client) outputPayload(out []json.RawMessage) string {
	if len(out) == 0 {
		return ""
	}
	first := out[0]

	var s string
	if err := json.Unmarshal(first, &s); err == nil {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "/") {
			return c.FileURL(s)
		}
		return s
	}

	var obj struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal(first, &obj); err == nil {
		if u := strings.TrimSpace(obj.URL); u != "" {
			return u
		}
		if p := strings.TrimSpace(obj.Path); p != "" {
			if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
				return p
			}
			return c.FileURL(p)
		}
	}
	return ""
}
