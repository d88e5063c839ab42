package builtin

import (
	"net/http"
	"net/url"
	"strings"

	"persona/internal/capability"
)

// OpenWebsite validates a URL and confirms the site is reachable with a
// HEAD request. The agent reports the outcome to the user; it does not
// drive a browser.
type OpenWebsite struct {
	capability.Base
	client *http.Client
}

func NewOpenWebsite() *OpenWebsite {
	return &OpenWebsite{
		Base: capability.NewBase(
			"open_website",
			"Checks that a website is reachable. Args: url (string), 'https://' is assumed when the scheme is missing.",
		),
		client: httpClient,
	}
}

func (o *OpenWebsite) Execute(args map[string]any) capability.Result {
	if errRes := capability.RequireArgs(args, "url"); errRes != nil {
		return errRes
	}
	raw, ok := args["url"].(string)
	if !ok || raw == "" {
		return capability.Errorf("argument 'url' must be a non-empty string")
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return capability.Errorf("invalid URL '%s'", raw)
	}

	resp, err := o.client.Head(raw)
	if err != nil {
		return capability.Errorf("cannot reach %s: %v", raw, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return capability.Errorf("%s responded with HTTP %d", raw, resp.StatusCode)
	}

	return capability.Result{
		"url":     raw,
		"status":  "success",
		"message": "Website is reachable: " + raw,
	}
}
