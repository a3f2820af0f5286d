package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// call sends a request to the bridge and decodes a JSON answer into out.
// Error responses come back as errors carrying the bridge's message.
func call(c *cli.Context, method, path string, body, out any) (err error) {
	var rd io.Reader
	if body != nil {
		var b []byte
		if b, err = json.Marshal(body); chk.E(err) {
			return
		}
		rd = bytes.NewReader(b)
	}
	url := strings.TrimSuffix(c.String("server"), "/") + path
	log.D.Ln(method, url)
	var req *http.Request
	if req, err = http.NewRequestWithContext(c.Context, method, url, rd); chk.E(err) {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	var res *http.Response
	if res, err = httpClient.Do(req); err != nil {
		return
	}
	defer res.Body.Close()
	var b []byte
	if b, err = io.ReadAll(res.Body); err != nil {
		return
	}
	if res.StatusCode >= 400 && res.StatusCode != http.StatusBadGateway {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", res.Status, e.Error)
		}
		return fmt.Errorf("%s", res.Status)
	}
	if out != nil && len(b) > 0 {
		err = json.Unmarshal(b, out)
	}
	if res.StatusCode == http.StatusBadGateway && err == nil {
		err = fmt.Errorf("no relay accepted the event")
	}
	return
}

// printJSON writes v to stdout, indented.
func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if chk.E(err) {
		return
	}
	fmt.Fprintln(os.Stdout, string(b))
}
