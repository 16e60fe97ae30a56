package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/models"
)

// MockDatabase mocks the database health check
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type errSource struct{}

func (errSource) Records(context.Context) ([]models.PriceRecord, error) {
	return nil, errors.New("upstream down")
}

func TestHealthHandler_HealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	snapshot := ingest.NewSnapshot([]models.PriceRecord{{State: "Goa", Month: "May", Year: 2023, IndexAL: 1}}, "")

	tests := []struct {
		name           string
		dbError        error
		withDB         bool
		source         ingest.RecordSource
		expectedStatus int
		expectedDB     string
		expectedSource string
	}{
		{
			name:           "snapshot only",
			source:         snapshot,
			expectedStatus: http.StatusOK,
			expectedSource: "healthy",
		},
		{
			name:           "database healthy",
			withDB:         true,
			source:         snapshot,
			expectedStatus: http.StatusOK,
			expectedDB:     "healthy",
			expectedSource: "healthy",
		},
		{
			name:           "database unhealthy",
			withDB:         true,
			dbError:        errors.New("connection refused"),
			source:         snapshot,
			expectedStatus: http.StatusServiceUnavailable,
			expectedDB:     "unhealthy: connection refused",
			expectedSource: "healthy",
		},
		{
			name:           "source failing",
			source:         errSource{},
			expectedStatus: http.StatusServiceUnavailable,
			expectedSource: "unhealthy: upstream down",
		},
		{
			name:           "no source",
			expectedStatus: http.StatusServiceUnavailable,
			expectedSource: "unhealthy: not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler *HealthHandler
			if tt.withDB {
				mockDB := &MockDatabase{}
				mockDB.On("HealthCheck", mock.Anything).Return(tt.dbError)
				handler = NewHealthHandler(mockDB, tt.source)
			} else {
				handler = NewHealthHandler(nil, tt.source)
			}

			router := gin.New()
			router.GET("/health", handler.HealthCheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedSource, response.Services["records"])
			if tt.withDB {
				assert.Equal(t, tt.expectedDB, response.Services["database"])
			} else {
				assert.NotContains(t, response.Services, "database")
			}
			assert.NotEmpty(t, response.Uptime)
		})
	}
}
