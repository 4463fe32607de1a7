package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:3001/api/", 5*time.Second)
	if c == nil {
		t.Fatal("NewClient() returned nil")
	}
	if c.baseURL != "http://localhost:3001/api" {
		t.Errorf("NewClient() baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("NewClient() timeout = %v, want 5s", c.httpClient.Timeout)
	}
}

func TestParameterType_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  int64
		wantKey string
		wantErr bool
	}{
		{
			name:    "single key",
			input:   `{"id_tipo_parametro": 1, "json": {"temp": {}}}`,
			wantID:  1,
			wantKey: "temp",
		},
		{
			name:    "first key in document order",
			input:   `{"id_tipo_parametro": 2, "json": {"umi": {"unit": "%"}, "alt": 1}}`,
			wantID:  2,
			wantKey: "umi",
		},
		{
			name:    "null json",
			input:   `{"id_tipo_parametro": 3, "json": null}`,
			wantID:  3,
			wantKey: "",
		},
		{
			name:    "missing json",
			input:   `{"id_tipo_parametro": 4}`,
			wantID:  4,
			wantKey: "",
		},
		{
			name:    "empty object",
			input:   `{"id_tipo_parametro": 5, "json": {}}`,
			wantID:  5,
			wantKey: "",
		},
		{
			name:    "non-object json",
			input:   `{"id_tipo_parametro": 6, "json": "temp"}`,
			wantID:  6,
			wantKey: "",
		},
		{
			name:    "invalid id",
			input:   `{"id_tipo_parametro": "one", "json": {"temp": {}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ParameterType
			err := json.Unmarshal([]byte(tt.input), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.ID != tt.wantID || got.ReadingKey != tt.wantKey {
				t.Errorf("Unmarshal() = %+v, want ID %d key %q", got, tt.wantID, tt.wantKey)
			}
		})
	}
}

func TestClient_FetchParameterTypes(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id_tipo_parametro": 1, "json": {"temp": {}}},
			{"id_tipo_parametro": 2, "json": {"umi": {}}}
		]`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/api", time.Second)
	types, err := c.FetchParameterTypes(context.Background(), "estacao-01")
	if err != nil {
		t.Fatalf("FetchParameterTypes() error = %v", err)
	}

	if gotPath != "/api/stations/estacao-01/tipo-parametros" {
		t.Errorf("request path = %q, want /api/stations/estacao-01/tipo-parametros", gotPath)
	}
	if len(types) != 2 {
		t.Fatalf("FetchParameterTypes() returned %d types, want 2", len(types))
	}
	if types[0] != (ParameterType{ID: 1, ReadingKey: "temp"}) || types[1] != (ParameterType{ID: 2, ReadingKey: "umi"}) {
		t.Errorf("FetchParameterTypes() = %+v", types)
	}
}

func TestClient_FetchParameterTypes_EscapesStationID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	if _, err := c.FetchParameterTypes(context.Background(), "a/b"); err != nil {
		t.Fatalf("FetchParameterTypes() error = %v", err)
	}
	if gotPath != "/stations/a%2Fb/tipo-parametros" {
		t.Errorf("request path = %q, want station id escaped", gotPath)
	}
}

func TestClient_FetchParameterTypes_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"not": "an array"`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewClient(server.URL, time.Second)
			types, err := c.FetchParameterTypes(context.Background(), "estacao-01")
			if !errors.Is(err, ErrLookupFailed) {
				t.Errorf("FetchParameterTypes() error = %v, want ErrLookupFailed", err)
			}
			if types != nil {
				t.Errorf("FetchParameterTypes() = %v, want nil", types)
			}
		})
	}
}

func TestClient_FetchParameterTypes_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, time.Second)
	if _, err := c.FetchParameterTypes(context.Background(), "estacao-01"); !errors.Is(err, ErrLookupFailed) {
		t.Errorf("FetchParameterTypes() error = %v, want ErrLookupFailed", err)
	}
}

func TestBuildKeyMap(t *testing.T) {
	types := []ParameterType{
		{ID: 1, ReadingKey: "temp"},
		{ID: 2, ReadingKey: "umi"},
		{ID: 3, ReadingKey: ""},
		{ID: 4, ReadingKey: "temp"},
	}

	got := BuildKeyMap(types)
	if len(got) != 2 {
		t.Fatalf("BuildKeyMap() has %d keys, want 2", len(got))
	}
	if got["temp"] != 4 {
		t.Errorf("BuildKeyMap()[temp] = %d, want 4 (later definition wins)", got["temp"])
	}
	if got["umi"] != 2 {
		t.Errorf("BuildKeyMap()[umi] = %d, want 2", got["umi"])
	}
	if _, ok := got[""]; ok {
		t.Error("BuildKeyMap() should ignore definitions without a reading key")
	}
}
