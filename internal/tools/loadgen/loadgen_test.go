package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandeepkv93/secure-credential-service/internal/tools/common"
)

func newLoginServer(t *testing.T, users map[string]string, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		if r.Method != http.MethodPost || r.URL.Path != loginPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var a attempt
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if pw, ok := users[a.Name]; !ok || pw != a.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunValidProfileAcceptsEveryLogin(t *testing.T) {
	var hits int64
	srv := newLoginServer(t, map[string]string{"alice": "pw-1", "bob": "pw-1"}, &hits)

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "valid",
		Duration:    400 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
		Users:       []string{"alice", "bob"},
		Password:    "pw-1",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 {
		t.Fatal("expected requests to be sent")
	}
	if res.Rejected != 0 || res.Accepted != res.TotalRequests {
		t.Fatalf("expected only accepted logins, got %+v", res)
	}
}

func TestRunInvalidProfileIsRejected(t *testing.T) {
	var hits int64
	srv := newLoginServer(t, map[string]string{"alice": "pw-1"}, &hits)

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "invalid",
		Duration:    400 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
		Users:       []string{"alice"},
		Password:    "pw-1",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 || res.Accepted != 0 || res.Rejected != res.TotalRequests {
		t.Fatalf("expected only rejected logins, got %+v", res)
	}
}

func TestRunValidatesConfig(t *testing.T) {
	cases := map[string]Config{
		"no users":        {Password: "x", Profile: "mixed"},
		"no password":     {Users: []string{"a"}, Profile: "mixed"},
		"unknown profile": {Users: []string{"a"}, Password: "x", Profile: "bursty"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Run(context.Background(), cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestMixedProfileDistribution(t *testing.T) {
	mix, ok := mixForProfile("mixed")
	if !ok {
		t.Fatal("expected mixed profile")
	}
	cfg := Config{Users: []string{"alice"}, Password: "pw", CheckOnly: true}
	r := rand.New(rand.NewSource(7))
	var valid, unknown, wrong int
	for i := 0; i < 1000; i++ {
		a := mix.next(r, cfg)
		if !a.CheckOnly {
			t.Fatal("expected check_only to carry through")
		}
		switch {
		case a.Name != "alice":
			unknown++
		case a.Password != "pw":
			wrong++
		default:
			valid++
		}
	}
	if valid < 600 || unknown == 0 || wrong == 0 {
		t.Fatalf("unexpected distribution valid=%d unknown=%d wrong=%d", valid, unknown, wrong)
	}
}

func TestRunCommandCIOutput(t *testing.T) {
	var hits int64
	srv := newLoginServer(t, map[string]string{"alice": "pw-1"}, &hits)
	t.Setenv(passwordEnv, "pw-1")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--ci", "--base-url", srv.URL, "--profile", "valid", "--duration", "300ms", "--rps", "40", "--users", "alice"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var res common.CIResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v (%s)", err, out.String())
	}
	if !res.OK || len(res.Details) == 0 || !strings.HasPrefix(res.Details[0], "total_requests=") {
		t.Fatalf("unexpected result %+v", res)
	}
	if atomic.LoadInt64(&hits) == 0 {
		t.Fatal("expected the server to see traffic")
	}
}

func TestRunCommandFailsWithoutPassword(t *testing.T) {
	t.Setenv(passwordEnv, "")
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--ci", "--users", "alice", "--duration", "10ms"})
	err := cmd.Execute()
	var exitErr *common.ExitError
	if err == nil || !errors.As(err, &exitErr) || exitErr.Code != exitFailure {
		t.Fatalf("expected exit error %d, got %v", exitFailure, err)
	}
}
