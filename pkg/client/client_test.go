package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"osdsched/pkg/models"
	"osdsched/pkg/osd"
)

// ClientTestSuite tests the scheduler client against a fake scheduler
type ClientTestSuite struct {
	suite.Suite
	mux    *http.ServeMux
	server *httptest.Server
	client *Client
}

// SetupTest runs before each test
func (s *ClientTestSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.client = New(s.server.URL+"/", 2, time.Millisecond, 5*time.Millisecond, time.Second)
}

// TearDownTest runs after each test
func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func testDescription(id string) *osd.Description {
	return osd.NewDescription(id, osd.PerformanceProfile{
		Capacity:            100,
		RandomThroughput:    50,
		StreamingThroughput: []float64{200, 150},
	}, osd.TypeSSD)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// TestNew tests client construction
func (s *ClientTestSuite) TestNew() {
	client := New("http://scheduler:8080///", 3, time.Second, 2*time.Second, 5*time.Second)
	s.Equal("http://scheduler:8080", client.baseURL)
	s.Equal(3, client.http.RetryMax)
	s.Equal(time.Second, client.http.RetryWaitMin)
	s.Equal(2*time.Second, client.http.RetryWaitMax)
	s.Equal(5*time.Second, client.http.HTTPClient.Timeout)
	s.Nil(client.http.Logger)
}

// TestAnnounce tests pushing an encoded descriptor
func (s *ClientTestSuite) TestAnnounce() {
	desc := testDescription("osd-1")

	s.mux.HandleFunc("PUT /osd/{id}/descriptor", func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		s.NoError(err)
		s.Equal("application/octet-stream", r.Header.Get("Content-Type"))

		decoded, err := osd.Decode(payload)
		s.NoError(err)
		s.Equal(r.PathValue("id"), decoded.Identifier())

		writeJSON(w, http.StatusOK, models.NodeStatus{
			Identifier: decoded.Identifier(),
			Type:       decoded.Type().String(),
			Usage:      decoded.Usage().String(),
			Free:       decoded.FreeResources(),
		})
	})

	status, err := s.client.Announce(context.Background(), desc)
	s.Require().NoError(err)
	s.Equal("osd-1", status.Identifier)
	s.Equal("SSD", status.Type)
	s.Equal(osd.FreeResources{Capacity: 100, IOPS: 50, SeqTP: 200}, status.Free)
}

// TestAnnounceRejected tests that a 400 is surfaced with its message
func (s *ClientTestSuite) TestAnnounceRejected() {
	s.mux.HandleFunc("PUT /osd/{id}/descriptor", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot handle descriptor version 3"})
	})

	_, err := s.client.Announce(context.Background(), testDescription("osd-1"))

	var statusErr *StatusError
	s.Require().True(errors.As(err, &statusErr))
	s.Equal(http.StatusBadRequest, statusErr.StatusCode)
	s.Equal("cannot handle descriptor version 3", statusErr.Message)
	s.Equal("scheduler returned status 400: cannot handle descriptor version 3", statusErr.Error())
	s.NoError(statusErr.Unwrap())
}

// TestFetchDescriptor tests downloading the scheduler's copy
func (s *ClientTestSuite) TestFetchDescriptor() {
	desc := testDescription("osd-1")
	desc.SetUsage(osd.UsageStreaming)

	s.mux.HandleFunc("GET /osd/{id}/descriptor", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(osd.Encode(desc))
	})

	fetched, err := s.client.FetchDescriptor(context.Background(), "osd-1")
	s.Require().NoError(err)
	s.Equal("osd-1", fetched.Identifier())
	s.Equal(osd.UsageStreaming, fetched.Usage())
	s.Equal(desc.Capabilities(), fetched.Capabilities())
	s.Empty(fetched.Reservations())
}

// TestFetchDescriptorMalformed tests that decode errors are returned unchanged
func (s *ClientTestSuite) TestFetchDescriptorMalformed() {
	s.mux.HandleFunc("GET /osd/{id}/descriptor", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{1, 0, 0})
	})

	_, err := s.client.FetchDescriptor(context.Background(), "osd-1")
	s.True(errors.Is(err, osd.ErrMalformedPayload))
}

// TestReserve tests admission requests and rejections
func (s *ClientTestSuite) TestReserve() {
	var calls int32
	s.mux.HandleFunc("POST /osd/{id}/reservations", func(w http.ResponseWriter, r *http.Request) {
		var req models.ReservationRequest
		s.NoError(json.NewDecoder(r.Body).Decode(&req))

		if atomic.AddInt32(&calls, 1) > 1 {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient resources"})
			return
		}
		writeJSON(w, http.StatusCreated, osd.Reservation{
			ID:                  "res-1",
			Capacity:            req.Capacity,
			RandomThroughput:    req.RandomThroughput,
			StreamingThroughput: req.StreamingThroughput,
		})
	})

	req := models.ReservationRequest{Capacity: 10, RandomThroughput: 5, StreamingThroughput: 20}
	stored, err := s.client.Reserve(context.Background(), "osd-1", req)
	s.Require().NoError(err)
	s.Equal(osd.Reservation{ID: "res-1", Capacity: 10, RandomThroughput: 5, StreamingThroughput: 20}, *stored)

	_, err = s.client.Reserve(context.Background(), "osd-1", req)
	s.True(errors.Is(err, ErrInsufficientResources))
}

// TestReserveDuplicate tests that other conflicts are not reported as rejections
func (s *ClientTestSuite) TestReserveDuplicate() {
	s.mux.HandleFunc("POST /osd/{id}/reservations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "reservation already exists"})
	})

	_, err := s.client.Reserve(context.Background(), "osd-1", models.ReservationRequest{ID: "job-1"})
	s.Error(err)
	s.False(errors.Is(err, ErrInsufficientResources))
}

// TestRelease tests releasing reservations
func (s *ClientTestSuite) TestRelease() {
	s.mux.HandleFunc("DELETE /osd/{id}/reservations/{rid}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("rid") != "res-1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reservation not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Reservation released"})
	})

	s.NoError(s.client.Release(context.Background(), "osd-1", "res-1"))
	s.True(errors.Is(s.client.Release(context.Background(), "osd-1", "res-2"), ErrNotFound))
}

// TestFreeResources tests the free-resource query
func (s *ClientTestSuite) TestFreeResources() {
	s.mux.HandleFunc("GET /osd/{id}/free", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "osd-1":
			writeJSON(w, http.StatusOK, osd.FreeResources{Capacity: -5, IOPS: 10, SeqTP: 0})
		case "osd-2":
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "OSD is degraded"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	free, err := s.client.FreeResources(context.Background(), "osd-1")
	s.Require().NoError(err)
	s.Equal(osd.FreeResources{Capacity: -5, IOPS: 10, SeqTP: 0}, *free)

	_, err = s.client.FreeResources(context.Background(), "osd-2")
	s.True(errors.Is(err, ErrDegraded))

	_, err = s.client.FreeResources(context.Background(), "osd-3")
	s.True(errors.Is(err, ErrNotFound))
	s.Equal("scheduler returned status 404 Not Found", err.Error())
}

// TestNodes tests listing
func (s *ClientTestSuite) TestNodes() {
	s.mux.HandleFunc("GET /osd", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.NodeList{Nodes: []models.NodeStatus{
			{Identifier: "osd-a"},
			{Identifier: "osd-b", Degraded: true},
		}})
	})

	nodes, err := s.client.Nodes(context.Background())
	s.Require().NoError(err)
	s.Require().Len(nodes, 2)
	s.Equal("osd-a", nodes[0].Identifier)
	s.True(nodes[1].Degraded)
}

// TestRetryOnConnectionError tests the retry policy
func (s *ClientTestSuite) TestRetryOnConnectionError() {
	ctx := context.Background()

	retry, err := retryOnConnectionError(ctx, nil, errors.New("connection refused"))
	s.True(retry)
	s.NoError(err)

	retry, err = retryOnConnectionError(ctx, &http.Response{StatusCode: http.StatusInternalServerError}, nil)
	s.False(retry)
	s.NoError(err)

	retry, err = retryOnConnectionError(ctx, nil, nil)
	s.False(retry)
	s.NoError(err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = retryOnConnectionError(cancelled, nil, errors.New("connection refused"))
	s.False(retry)
	s.ErrorIs(err, context.Canceled)
}

// TestUnreachableScheduler tests that connection errors are retried and then reported
func (s *ClientTestSuite) TestUnreachableScheduler() {
	s.server.Close()

	_, err := s.client.FreeResources(context.Background(), "osd-1")
	s.Error(err)

	var statusErr *StatusError
	s.False(errors.As(err, &statusErr))
}

// TestClientSuite runs the client test suite
func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
