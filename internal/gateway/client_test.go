package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rana718/datamock/internal/types"
	"github.com/Rana718/datamock/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopStructure = `{"databases":[{"name":"shop","tables":[{"name":"users","attributes":[{"name":"id","type":"integer","constraints":["primary_key"]}]}]}]}`

func parseEnvelope(t *testing.T, data string) []byte {
	t.Helper()
	body, err := json.Marshal(types.ParseResponse{
		Success:  true,
		SchemaID: "schema_abc",
		Message:  "Schema parsed and stored successfully.",
		Data:     data,
	})
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", SaveToDisk: true, OverwriteExisting: true})
}

func schemaUpload() *validation.File {
	return validation.NewFile("shop.sql", []byte("CREATE TABLE users (id INT);"), "text/plain")
}

func TestParseSendsMultipartAndDecodesTwice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/parse", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("save_to_disk"))
		assert.Equal(t, "true", r.URL.Query().Get("overwrite_existing"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		assert.Equal(t, "shop.sql", hdr.Filename)
		assert.Equal(t, "text/plain", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "CREATE TABLE users (id INT);", string(content))

		seed, seedHdr, err := r.FormFile("seed_data_file")
		require.NoError(t, err)
		seedContent, _ := io.ReadAll(seed)
		assert.Equal(t, "seed.csv", seedHdr.Filename)
		assert.Equal(t, "id\n1\n", string(seedContent))

		w.Write(parseEnvelope(t, shopStructure))
	})

	res, err := c.Parse(context.Background(), schemaUpload(), validation.NewFile("seed.csv", []byte("id\n1\n"), "text/csv"))
	require.NoError(t, err)
	assert.Equal(t, "schema_abc", res.SchemaID)
	require.Len(t, res.Structure.Databases, 1)
	assert.Equal(t, "users", res.Structure.Databases[0].Tables[0].Name)
}

func TestParseWithoutSeedOmitsPart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("seed_data_file")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		w.Write(parseEnvelope(t, shopStructure))
	})

	_, err := c.Parse(context.Background(), schemaUpload(), nil)
	require.NoError(t, err)
}

func TestParseQueryFlagsFollowOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("save_to_disk"))
		assert.Equal(t, "false", r.URL.Query().Get("overwrite_existing"))
		assert.Equal(t, "/api/parse", r.URL.Path)
		w.Write(parseEnvelope(t, shopStructure))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, ParsePath: "/api/parse"})
	_, err := c.Parse(context.Background(), schemaUpload(), nil)
	require.NoError(t, err)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"http 400 detail", http.StatusBadRequest, `{"detail":"File must have .sql extension"}`, KindParseFailed, "File must have .sql extension"},
		{"http 413", http.StatusRequestEntityTooLarge, `{"detail":"File size exceeds maximum limit"}`, KindParseFailed, "File size exceeds maximum limit"},
		{"http 500 plain", http.StatusInternalServerError, "boom", KindParseFailed, "boom"},
		{"http 502 empty", http.StatusBadGateway, "", KindParseFailed, "Bad Gateway"},
		{"success false", http.StatusOK, `{"success":false,"message":"Failed to parse schema: bad DDL"}`, KindParseFailed, "Failed to parse schema: bad DDL"},
		{"not json", http.StatusOK, "<html>", KindMalformedResponse, "parse response is not valid JSON"},
		{"no data", http.StatusOK, `{"success":true,"message":"Schema already exists in memory"}`, KindMalformedResponse, "parse response carried no schema data: Schema already exists in memory"},
		{"data not json", http.StatusOK, `{"success":true,"data":"not json"}`, KindMalformedResponse, "parse response data is not a database structure"},
		{"data without databases", http.StatusOK, `{"success":true,"data":"{}"}`, KindMalformedResponse, "parse response data is not a database structure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Parse(context.Background(), schemaUpload(), nil)
			gerr, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %v", err)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.message, gerr.Message)
			assert.False(t, gerr.Network)
		})
	}
}

func TestParseDetailList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"loc":["body","file"],"msg":"field required"}]}`)
	})
	_, err := c.Parse(context.Background(), schemaUpload(), nil)
	require.ErrorIs(t, err, ErrParseFailed)
	assert.Contains(t, err.Error(), "field required")
	assert.Contains(t, err.Error(), "HTTP 422")
}

func TestParseRequiresFile(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Parse(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNetworkErrorsAreFolded(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Options{BaseURL: base})

	_, err := c.Parse(context.Background(), schemaUpload(), nil)
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindParseFailed, gerr.Kind)
	assert.True(t, gerr.Network)
	assert.Equal(t, NetworkMessage, gerr.Message)
	assert.NotNil(t, errors.Unwrap(gerr))

	err = c.Generate(context.Background(), types.GenerateRequest{})
	assert.ErrorIs(t, err, ErrGenerateFailed)
	assert.NotErrorIs(t, err, ErrParseFailed)
}

func TestContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Parse(ctx, schemaUpload(), nil)
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, gerr.Network)
	assert.Equal(t, "the backend service did not respond in time", gerr.Message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateSendsJSON(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})

	req := types.GenerateRequest{
		DatabaseStructure: types.DatabaseStructure{Databases: []types.Database{{Name: "shop", Tables: []types.Table{}}}},
		TableEntryCounts:  map[string]int{"users": 10},
	}
	require.NoError(t, c.Generate(context.Background(), req))

	assert.Contains(t, got, "databaseStructure")
	assert.Equal(t, map[string]any{"users": float64(10)}, got["tableEntryCounts"])
	assert.Contains(t, got, "encryption")
	assert.Nil(t, got["encryption"])
}

func TestGenerateEncodesRules(t *testing.T) {
	var raw json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Encryption json.RawMessage `json:"encryption"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw = body.Encryption
	})

	err := c.Generate(context.Background(), types.GenerateRequest{
		TableEntryCounts: map[string]int{},
		Encryption:       []types.EncryptionRule{{ID: "r1", TableName: "users", Attribute: "email", Algorithm: "AES-256"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"r1","tableName":"users","attribute":"email","algorithm":"AES-256"}]`, string(raw))
}

func TestGenerateFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"message":"generator crashed"}`)
	})

	err := c.Generate(context.Background(), types.GenerateRequest{})
	gerr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindGenerateFailed, gerr.Kind)
	assert.Equal(t, http.StatusInternalServerError, gerr.Status)
	assert.Equal(t, "generator crashed", gerr.Message)
	assert.Equal(t, "GenerateFailed: generator crashed (HTTP 500)", gerr.Error())
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/health", r.URL.Path)
		io.WriteString(w, `{"status":"healthy","version":"1.0.0","schemas_in_memory":3}`)
	})

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 3, health.SchemasInMemory)
}

func TestListSchemas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/schemas", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		assert.Equal(t, "shop", r.URL.Query().Get("search"))
		io.WriteString(w, `{"schemas":[{"schema_id":"schema_1","filename":"shop.sql","file_size":120,"databases":1,"tables":4}],
			"pagination":{"total_schemas":11,"returned_count":1,"offset":10,"limit":5,"has_more":false}}`)
	})

	list, err := c.ListSchemas(context.Background(), ListOptions{Limit: 5, Offset: 10, Search: "shop"})
	require.NoError(t, err)
	require.Len(t, list.Schemas, 1)
	assert.Equal(t, "shop.sql", list.Schemas[0].Filename)
	assert.Equal(t, 11, list.Pagination.TotalSchemas)
}

func TestListSchemasErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":"Rate limit exceeded"}`)
	})

	_, err := c.ListSchemas(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "Rate limit exceeded")
}
