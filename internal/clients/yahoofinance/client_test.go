package yahoofinance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/twpulse/internal/models"
)

// 2025-10-13..16 09:00 Taipei, delivered out of order with one null bar
const chartBody = `{"chart":{"result":[{
	"timestamp":[1760403600,1760317200,1760490000,1760576400],
	"indicators":{"quote":[{
		"close":[1010.5,1000.0,null,1025.0],
		"volume":[21000000,18000000,null,25000000]
	}]}
}],"error":null}}`

func TestGetDailyBars_ParsesAndSorts(t *testing.T) {
	var capturedPath, capturedRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedRange = r.URL.Query().Get("range")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartBody)
	}))
	defer srv.Close()

	client := NewClient(WithChartBaseURL(srv.URL))
	bars, err := client.GetDailyBars(context.Background(), "2330.TW", 30)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/2330.TW", capturedPath)
	assert.Equal(t, "1mo", capturedRange)

	require.Len(t, bars, 3)
	assert.Equal(t, 1000.0, bars[0].Close)
	assert.Equal(t, int64(18000000), bars[0].Volume)
	assert.Equal(t, 1010.5, bars[1].Close)
	assert.Equal(t, 1025.0, bars[2].Close)
	assert.True(t, bars[0].Date.Before(bars[1].Date))

	// dates are normalised to midnight Taipei
	assert.Equal(t, 0, bars[0].Date.Hour())
	assert.Equal(t, time.Date(2025, 10, 13, 0, 0, 0, 0, Taipei), bars[0].Date)
}

func TestGetDailyBars_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http 404", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"error payload", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`},
		{"empty series", http.StatusOK, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{"close":[],"volume":[]}]}}],"error":null}}`},
		{"all null", http.StatusOK, `{"chart":{"result":[{"timestamp":[1760403600],"indicators":{"quote":[{"close":[null],"volume":[null]}]}}],"error":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient(WithChartBaseURL(srv.URL))
			_, err := client.GetDailyBars(context.Background(), "9999.TW", 30)
			assert.ErrorIs(t, err, models.ErrSymbolNotFound)
		})
	}
}

func TestGetDailyBars_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithChartBaseURL(srv.URL))
	_, err := client.GetDailyBars(context.Background(), "2330.TW", 30)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrSymbolNotFound)
}

func TestChartRange(t *testing.T) {
	assert.Equal(t, "5d", chartRange(5))
	assert.Equal(t, "1mo", chartRange(30))
	assert.Equal(t, "3mo", chartRange(60))
	assert.Equal(t, "1y", chartRange(365))
	assert.Equal(t, "2y", chartRange(1000))
}

func TestSearchNews_ParsesData(t *testing.T) {
	var capturedPath, capturedLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `{"data":[
			{"title":"鴻海 AI 伺服器","url":"https://tw.stock.yahoo.com/news/a.html","providerPublishTime":1760659200,"provider":"中央社"},
			{"title":"沒有連結","url":""},
			{"title":"","url":"https://tw.stock.yahoo.com/news/b.html"},
			{"title":"鴻海 股東會","url":"https://tw.stock.yahoo.com/news/c.html"}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(WithNewsBaseURL(srv.URL))
	items, err := client.SearchNews(context.Background(), "鴻海", 5)
	require.NoError(t, err)

	assert.Equal(t, "/鴻海", capturedPath)
	assert.Equal(t, "5", capturedLimit)

	require.Len(t, items, 2)
	assert.Equal(t, "鴻海 AI 伺服器", items[0].Title)
	assert.Equal(t, "yahoo-finance", items[0].Source)
	assert.Equal(t, "中央社", items[0].Category)
	require.NotNil(t, items[0].PublishedAt)
	assert.Nil(t, items[1].PublishedAt)
}

func TestSearchNews_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(WithNewsBaseURL(srv.URL))
	_, err := client.SearchNews(context.Background(), "鴻海", 5)
	assert.Error(t, err)
}
