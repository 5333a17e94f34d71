package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/docqa/internal/models"
)

func TestClient_Upload(t *testing.T) {
	var got []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/data/upload/3" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		for _, fh := range r.MultipartForm.File["files"] {
			got = append(got, fh.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"signal":                 "file_upload_success",
			"uploaded_files_details": []map[string]any{{"original_filename": "a.txt", "asset_db_id": 9}},
		})
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("alpha"), 0600); err != nil {
		t.Fatal(err)
	}
	res, err := NewClient(ts.URL+"/", time.Second).Upload(context.Background(), 3, []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "a.txt" {
		t.Errorf("server saw %v", got)
	}
	if len(res.Uploaded) != 1 || res.Uploaded[0].AssetID != 9 {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_Ask(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q models.SearchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatal(err)
		}
		if q.Text != "why?" || !q.IncludeTrace {
			t.Errorf("query = %+v", q)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"signal": "rag_answer_success", "answer": "because", "branch": "text"})
	}))
	defer ts.Close()

	ans, err := NewClient(ts.URL, time.Second).Ask(context.Background(), 1, models.SearchQuery{Text: "why?", IncludeTrace: true})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Text != "because" || ans.Branch != models.BranchText {
		t.Errorf("answer = %+v", ans)
	}
}

func TestClient_ErrorKeepsPartialResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"signal": "insert_into_vectordb_error", "inserted_items_count": 4})
	}))
	defer ts.Close()

	res, err := NewClient(ts.URL, time.Second).Push(context.Background(), 1, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Signal != "insert_into_vectordb_error" {
		t.Errorf("error = %+v", apiErr)
	}
	if res.InsertedCount != 4 {
		t.Errorf("inserted = %d, want partial count 4", res.InsertedCount)
	}
}

func TestClient_Unreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", 200*time.Millisecond).Status(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}
