package cnyes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchNews_ParsesItems(t *testing.T) {
	var captured url.Values
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		captured = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[
			{"title":"台積電 營收 創高","newsId":5501,"publishAt":1760659200,"categoryName":"台股"},
			{"title":"   ","newsId":5502,"publishAt":1760659300},
			{"title":"沒有編號","newsId":0},
			{"title":"台積電 先進封裝","newsId":5503}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithNewsURL("https://news.example.com/id"))
	items, err := client.SearchNews(context.Background(), "台積電", 5)
	require.NoError(t, err)

	assert.Equal(t, "/search", capturedPath)
	assert.Equal(t, "台積電", captured.Get("q"))
	assert.Equal(t, "5", captured.Get("limit"))
	assert.Equal(t, "1", captured.Get("page"))
	assert.Equal(t, "news", captured.Get("type"))

	require.Len(t, items, 2)
	assert.Equal(t, "台積電 營收 創高", items[0].Title)
	assert.Equal(t, "https://news.example.com/id/5501", items[0].Link)
	assert.Equal(t, "台股", items[0].Category)
	assert.Equal(t, "cnyes", items[0].Source)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, int64(1760659200), items[0].PublishedAt.Unix())

	assert.Nil(t, items[1].PublishedAt)
}

func TestSearchNews_CapsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"title":"a一","newsId":1},{"title":"a二","newsId":2},{"title":"a三","newsId":3},
			{"title":"a四","newsId":4},{"title":"a五","newsId":5},{"title":"a六","newsId":6}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	items, err := client.SearchNews(context.Background(), "a", 5)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestSearchNews_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	items, err := client.SearchNews(context.Background(), "冷門", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchNews_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"malformed json", http.StatusOK, `{"items":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient(WithBaseURL(srv.URL))
			_, err := client.SearchNews(context.Background(), "台積電", 5)
			assert.Error(t, err)
		})
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "cnyes", NewClient().Name())
}
