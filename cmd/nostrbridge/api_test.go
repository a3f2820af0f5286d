package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func testContext(t *testing.T, server string, set func(*flag.FlagSet)) *cli.Context {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("server", server, "")
	fs.Uint("kind", 0, "")
	fs.String("author", "", "")
	fs.String("tag", "", "")
	if set != nil {
		set(fs)
	}
	c := cli.NewContext(app, fs, nil)
	c.Context = context.Background()
	return c
}

func TestCallErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/pubkey":
			w.WriteHeader(http.StatusPreconditionFailed)
			w.Write([]byte(`{"error":"no public key configured"}`))
		case "/api/records/x/publish":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"success":false}`))
		default:
			w.Write([]byte(`{"relays":["wss://a.example.com"]}`))
		}
	}))
	defer srv.Close()
	c := testContext(t, srv.URL+"/", nil)

	var out map[string]any
	err := call(c, "GET", "/api/pubkey", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no public key configured")

	err = call(c, "POST", "/api/records/x/publish", map[string]string{}, &out)
	require.Error(t, err)
	assert.Equal(t, false, out["success"])

	var rs map[string][]string
	require.NoError(t, call(c, "GET", "/api/relays", nil, &rs))
	assert.Equal(t, []string{"wss://a.example.com"}, rs["relays"])
}

func TestEventsQuery(t *testing.T) {
	c := testContext(t, "", func(fs *flag.FlagSet) { fs.Set("tag", "t=nostr") })
	assert.Equal(t, "tag=t%3Anostr", eventsQuery(c).Encode())
	c = testContext(t, "", func(fs *flag.FlagSet) { fs.Set("kind", "30023") })
	assert.Equal(t, "kind=30023", eventsQuery(c).Encode())
}
