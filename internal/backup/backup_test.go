package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lherron/pipeboard/internal/snapshot"
)

// mockRoundTripper is a tiny fake S3 covering Put, Get and ListObjectsV2.
// Listings are split into pages of one key to exercise continuation.
type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string][]byte
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		prefix := req.URL.Query().Get("prefix")
		after := req.URL.Query().Get("continuation-token")
		var keys []string
		for k := range m.state {
			if strings.HasPrefix(k, prefix) && k > after {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
		if len(keys) > 1 {
			fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%s</NextContinuationToken>", keys[0])
			keys = keys[:1]
		} else {
			b.WriteString("<IsTruncated>false</IsTruncated>")
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(m.state[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		m.state[key] = body
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		body, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound, nil, http.Header{}), nil
		}
		return respond(http.StatusOK, body, http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(body))},
			"Content-Type":   {"application/json"},
		}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func respond(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header}
}

func newMockStore(t *testing.T) (*Store, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return NewWithClient(client, "test-bucket", "snapshots/"), rt
}

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Meta: snapshot.Meta{SchemaVersion: snapshot.SchemaVersion},
		Tables: map[string]snapshot.Table{
			"Requirements": {
				Header: []string{"id", "status"},
				Rows:   [][]any{{"r1", "done"}},
			},
		},
	}
}

func TestStore_PushPullList(t *testing.T) {
	store, rt := newMockStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	snap := testSnapshot()
	key, err := store.Push(ctx, snap)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if snap.Meta.SnapshotRev == "" {
		t.Fatal("push should seal an unsealed snapshot")
	}
	wantKey := "snapshots/20250301T100000Z-" + strings.TrimPrefix(snap.Meta.SnapshotRev, "sha256:")[:12] + ".json"
	if key != wantKey {
		t.Fatalf("key = %s, want %s", key, wantKey)
	}

	clock = clock.Add(time.Hour)
	second := testSnapshot()
	second.Tables["Requirements"].Rows[0][1] = "pending"
	key2, err := store.Push(ctx, second)
	if err != nil {
		t.Fatalf("push: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != key || list[1].Key != key2 {
		t.Fatalf("unexpected list: %+v", list)
	}

	latest, err := store.Latest(ctx)
	if err != nil || latest != key2 {
		t.Fatalf("latest = %s, %v; want %s", latest, err, key2)
	}

	pulled, err := store.Pull(ctx, strings.TrimPrefix(key, "snapshots/"))
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if pulled.Meta.SnapshotRev != snap.Meta.SnapshotRev {
		t.Errorf("pulled rev %s, want %s", pulled.Meta.SnapshotRev, snap.Meta.SnapshotRev)
	}
	if got := pulled.Tables["Requirements"].Rows[0][1]; got != "done" {
		t.Errorf("pulled status = %v", got)
	}

	// Corrupt the stored object and expect verification to fail.
	rt.state[key] = bytes.Replace(rt.state[key], []byte(`"done"`), []byte(`"lost"`), 1)
	if _, err := store.Pull(ctx, key); err == nil {
		t.Error("expected rev mismatch for tampered backup")
	}
}

func TestStore_PullMissing(t *testing.T) {
	store, _ := newMockStore(t)
	if _, err := store.Pull(context.Background(), "nope.json"); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := store.Latest(context.Background()); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
	s, err := New(context.Background(), Config{
		Bucket:          "bkt",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		Prefix:          "pb/",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Bucket() != "bkt" {
		t.Errorf("Bucket() = %s", s.Bucket())
	}
	if got := s.Key(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ""); got != "pb/20250101T000000Z-unsealed.json" {
		t.Errorf("Key() = %s", got)
	}
}
