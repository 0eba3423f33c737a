package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"contracting-bridge/internal/config"
	"contracting-bridge/internal/data"
)

// fakeTenders is an httptest-backed stand-in for the source system.
type fakeTenders struct {
	mu sync.Mutex

	tenders map[string]data.Tender
	creds   data.Credentials

	credCalls    int
	credFailures int // initial ExtractCredentials calls answered with 500

	feedPages []data.FeedPage
	feedIdx   int
	feedCalls int
}

func newFakeTenders() *fakeTenders {
	return &fakeTenders{
		tenders: make(map[string]data.Tender),
		creds: data.Credentials{
			Owner:       "owner",
			TenderToken: "tender_token",
		},
	}
}

func (f *fakeTenders) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/api/2.4")
		switch {
		case strings.HasSuffix(path, "/extract_credentials"):
			f.credCalls++
			if f.credCalls <= f.credFailures {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			writeJSON(w, data.Response[data.Credentials]{Data: f.creds})
		case path == "/tenders":
			f.feedCalls++
			page := data.FeedPage{}
			if f.feedIdx < len(f.feedPages) {
				page = f.feedPages[f.feedIdx]
				f.feedIdx++
			}
			writeJSON(w, page)
		case strings.HasPrefix(path, "/tenders/"):
			id := strings.TrimPrefix(path, "/tenders/")
			tender, ok := f.tenders[id]
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			writeJSON(w, data.Response[data.Tender]{Data: tender})
		default:
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeContracting is an httptest-backed stand-in for the target system.
type fakeContracting struct {
	mu sync.Mutex

	// existing maps contract id to the status the GET probe answers with.
	// Ids not present answer 404.
	existing map[string]int

	createFailures int // initial CreateContract calls answered with 500
	createCalls    int
	created        []data.ContractData
}

func newFakeContracting() *fakeContracting {
	return &fakeContracting{existing: make(map[string]int)}
}

func (f *fakeContracting) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/api/2.4")
		switch {
		case r.Method == http.MethodPost && path == "/contracts":
			f.createCalls++
			if f.createCalls <= f.createFailures {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			var envelope data.Response[data.ContractData]
			if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.created = append(f.created, envelope.Data)
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, envelope)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/contracts/"):
			id := strings.TrimPrefix(path, "/contracts/")
			code, ok := f.existing[id]
			if !ok {
				code = http.StatusNotFound
			}
			if code != http.StatusOK {
				http.Error(w, http.StatusText(code), code)
				return
			}
			writeJSON(w, data.Response[data.ContractData]{Data: data.ContractData{ID: id}})
		default:
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeTenders) credentialCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credCalls
}

func (f *fakeContracting) createdPayloads() []data.ContractData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]data.ContractData(nil), f.created...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(tendersURL, contractingURL string) *config.Config {
	return &config.Config{
		TendersAPI:     config.APIConfig{URL: tendersURL, Version: "2.4"},
		ContractingAPI: config.APIConfig{URL: contractingURL, Version: "2.4"},
		Cache:          config.CacheConfig{Backend: "memory"},
		Retry:          config.RetryConfig{CredentialsAttempts: 3, DelayMS: 1, MaxDelayMS: 20},
		Delays:         config.DelaysConfig{OnErrorMS: 1, EmptyFeedMS: 5, SuperviseMS: 1, GraceTimeoutMS: 200},
	}
}

func newTestBridge(t *testing.T, tendersURL, contractingURL string) *Bridge {
	t.Helper()
	b, err := New(testConfig(tendersURL, contractingURL))
	if err != nil {
		t.Fatalf("failed to build bridge: %v", err)
	}
	return b
}
