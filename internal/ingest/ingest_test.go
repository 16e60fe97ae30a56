package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/utils"
)

const sampleCSV = `indicator,baseYear,year,month,state,indexAL,indexRL,inflationAL,inflationRL
CPI-AL/RL,1986-87,2023,January,Odisha,1250,1262,6.5,6.1
CPI-AL/RL,1986-87,2023,Feb,ODISHA,1255,1266,,
CPI-AL/RL,1986-87,twenty,March,Odisha,1260,1270,6.0,5.9
CPI-AL/RL,1986-87,2023,Smarch,Odisha,1260,1270,6.0,5.9
CPI-AL/RL,1986-87,2023,April,Odisha,-4,1270,6.0,5.9
CPI-AL/RL,1986-87,2023,May,Odisha,abc,1270,6.0,5.9
CPI-AL/RL,1986-87,2023,June,all india,0,1280,NA,null
`

func TestParseCSV(t *testing.T) {
	records, report, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 7, report.Rows)
	assert.Equal(t, 3, report.Accepted)
	assert.Equal(t, 4, report.Dropped)
	require.Len(t, report.Errors, 4)
	for _, e := range report.Errors {
		assert.True(t, utils.IsValidationError(e), e.Error())
	}

	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "CPI-AL/RL", first.Indicator)
	assert.Equal(t, "1986-87", first.BaseYear)
	assert.Equal(t, 2023, first.Year)
	assert.Equal(t, "January", first.Month)
	assert.Equal(t, "Odisha", first.State)
	assert.Equal(t, 1250.0, first.IndexAL)
	assert.Equal(t, 1262.0, first.IndexRL)
	require.NotNil(t, first.InflationAL)
	assert.Equal(t, 6.5, *first.InflationAL)

	second := records[1]
	assert.Equal(t, "February", second.Month)
	assert.Equal(t, "Odisha", second.State)
	assert.Nil(t, second.InflationAL)
	assert.Nil(t, second.InflationRL)

	third := records[2]
	assert.Equal(t, "All India", third.State)
	assert.Equal(t, 0.0, third.IndexAL)
	assert.Nil(t, third.InflationAL)
}

func TestParseCSV_HeaderVariants(t *testing.T) {
	data := "\ufeffState, Month ,YEAR,index_al,Index-RL\nBihar,3,2024,101.5,99\n"

	records, report, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, records, 1)
	assert.Equal(t, "March", records[0].Month)
	assert.Equal(t, 101.5, records[0].IndexAL)
	assert.Empty(t, records[0].Indicator)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("state,month,year,indexAL\nBihar,March,2024,101\n"))
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), "indexrl")
}

func TestParseCSV_Empty(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		accepted int
		dropped  int
		wantErr  bool
	}{
		{
			name: "bare array",
			payload: `[
				{"indicator":"CPI","baseYear":"1986-87","year":2023,"month":"January","state":"Bihar","indexAL":1200,"indexRL":1210,"inflationAL":5.5,"inflationRL":null},
				{"year":"2023","month":"feb","state":"bihar","indexAL":"1205.5","indexRL":1212}
			]`,
			accepted: 2,
		},
		{
			name:     "wrapped in records",
			payload:  `{"records":[{"year":2023,"month":"March","state":"Assam","indexAL":1,"indexRL":2}]}`,
			accepted: 1,
		},
		{
			name:     "wrapped in data with a bad row",
			payload:  `{"data":[{"year":2023,"month":"Nope","state":"Assam","indexAL":1,"indexRL":2}, 42]}`,
			accepted: 0,
			dropped:  2,
		},
		{
			name:    "object without records",
			payload: `{"status":"ok"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			payload: `{"records":[`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, report, err := ParseJSON([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.accepted)
			assert.Equal(t, tt.accepted, report.Accepted)
			assert.Equal(t, tt.dropped, report.Dropped)
		})
	}
}

func TestParseJSON_Fields(t *testing.T) {
	payload := `[{"indicator":"CPI","year":2023.0,"month":"feb","state":"tamil  nadu","indexAL":"1205.5","indexRL":1212,"inflationAL":null,"inflationRL":"4.25"}]`

	records, _, err := ParseJSON([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, "February", r.Month)
	assert.Equal(t, "Tamil Nadu", r.State)
	assert.Equal(t, 1205.5, r.IndexAL)
	assert.Nil(t, r.InflationAL)
	require.NotNil(t, r.InflationRL)
	assert.Equal(t, 4.25, *r.InflationRL)
}

func TestNormalizeMonth(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"January", "January", true},
		{"  march ", "March", true},
		{"SEP", "September", true},
		{"Sept.", "September", true},
		{"12", "December", true},
		{"01", "January", true},
		{"13", "", false},
		{"0", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeMonth(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ANDHRA  PRADESH", "Andhra Pradesh"},
		{"all india", "All India"},
		{"JAMMU AND KASHMIR", "Jammu and Kashmir"},
		{"NCT of Delhi", "NCT of Delhi"},
		{"nct of delhi", "NCT of Delhi"},
		{"ALL INDIA", "All India"},
		{"GOA", "Goa"},
		{"goa", "Goa"},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeState(tt.input))
		})
	}
}

func TestFilterIndicator(t *testing.T) {
	records := []models.PriceRecord{
		{Indicator: "CPI-AL", State: "A"},
		{Indicator: "cpi-al", State: "B"},
		{Indicator: "WPI", State: "C"},
	}
	assert.Len(t, FilterIndicator(records, ""), 3)
	assert.Len(t, FilterIndicator(records, "CPI-AL"), 2)
	assert.Empty(t, FilterIndicator(records, "none"))
}

func TestSnapshot(t *testing.T) {
	records := []models.PriceRecord{
		{Indicator: "CPI", State: "Bihar"},
		{Indicator: "OTHER", State: "Assam"},
	}
	snap := NewSnapshot(records, "CPI")
	assert.Equal(t, 1, snap.Len())
	assert.False(t, snap.LoadedAt().IsZero())

	got, err := snap.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Callers cannot mutate the snapshot.
	got[0].State = "Changed"
	again, err := snap.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bihar", again[0].State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = snap.Records(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpi.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	snap, err := LoadCSVFile(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	_, err = LoadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), "", nil)
	assert.Error(t, err)
}

func TestClient_FetchRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[
			{"indicator":"CPI","year":2023,"month":"January","state":"Bihar","indexAL":1200,"indexRL":1210},
			{"indicator":"WPI","year":2023,"month":"January","state":"Bihar","indexAL":1,"indexRL":1}
		]}`))
	}))
	defer server.Close()

	client := NewClient(config.IngestionConfig{APIURL: server.URL, Indicator: "CPI", TimeoutSeconds: 5}, nil)

	records, report, err := client.FetchRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Accepted)
	require.Len(t, records, 1)
	assert.Equal(t, "CPI", records[0].Indicator)

	snap, err := Load(context.Background(), client, "")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

func TestClient_FetchRecordsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.IngestionConfig{APIURL: server.URL}, nil)
	_, err := client.Records(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestParseCSV_StateCasingMerges(t *testing.T) {
	data := `state,month,year,indexAL,indexRL
GOA,January,2024,100,101
goa,February,2024,101,102
ALL INDIA,January,2024,100,100
all india,February,2024,101,101
`
	records, report, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 4, report.Accepted)

	states := make(map[string]int)
	for _, r := range records {
		states[r.State]++
	}
	assert.Equal(t, map[string]int{"Goa": 2, "All India": 2}, states)
}
