package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hsagiv/pizza-orders-assignment/internal/config"
	"github.com/hsagiv/pizza-orders-assignment/internal/database"
	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/server"
	"github.com/hsagiv/pizza-orders-assignment/internal/stats"
	"github.com/hsagiv/pizza-orders-assignment/internal/testutil"
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

const (
	testUserToken  = "user-token"
	testAdminToken = "admin-token"
)

func newTestApp(t *testing.T, repo *database.MockOrderRepository) *TrackerApp {
	t.Helper()

	logger := testutil.TestLogger(t)
	mux := http.NewServeMux()
	su := stats.NewStatsUpdater(mux)
	svc := orders.NewService(logger, repo)
	registry := server.NewRoomRegistry()
	bc := server.NewBroadcaster(logger, registry, su)

	ts, err := server.NewTrackerServer(logger, svc, registry, bc, su)
	require.NoError(t, err)

	creds, err := server.NewCredentials(testUserToken, testAdminToken, []byte("signing-key"))
	require.NoError(t, err)

	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		DatabaseDSN:    "postgres://localhost/orders_test",
		SigningKey:     []byte("signing-key"),
		UserToken:      testUserToken,
		AdminToken:     testAdminToken,
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	return NewTrackerApp(mux, logger, ts, svc, creds, cfg)
}

func testDbOrder(id int, status types.OrderStatus) database.Order {
	return database.Order{
		Id:           id,
		Number:       "ord-1",
		CustomerName: "Mario Rossi",
		Address:      "1 Via Roma",
		Status:       string(status),
		TotalPrice:   9.5,
		SubItems: []database.SubItem{
			{Id: 1, OrderId: id, Title: "Margherita", Type: "pizza", Amount: 1, Price: 9.5},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func testCreateBody() orders.CreateOrderParams {
	return orders.CreateOrderParams{
		CustomerName: "Mario Rossi",
		Address:      "1 Via Roma",
		Latitude:     41.9,
		Longitude:    12.5,
		SubItems: []orders.SubItemParams{
			{Title: "Margherita", Type: "pizza", Amount: 1, Price: 9.5},
		},
	}
}

func Test_healthCheck(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "healthy database",
			mockErr: nil,
		},
		{
			name:    "unreachable database",
			mockErr: errors.New("connection refused"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockOrderRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			app.healthCheck(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code)
			} else {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, "OK", rr.Body.String())
			}
		})
	}
}

func TestCreateOrderHandler(t *testing.T) {
	tcases := []struct {
		name        string
		body        any
		success     bool
		mockOrder   database.Order
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:      "successfully creates an order",
			body:      testCreateBody(),
			success:   true,
			mockOrder: testDbOrder(1, types.StatusReceived),
		},
		{
			name:        "fails with invalid json body",
			body:        "not json",
			expectedErr: NewBadRequestError(),
		},
		{
			name: "fails with missing customer name",
			body: func() orders.CreateOrderParams {
				p := testCreateBody()
				p.CustomerName = ""
				return p
			}(),
			expectedErr: NewValidationError("invalid order: customer name must be 1-100 characters"),
		},
		{
			name: "fails with no items",
			body: func() orders.CreateOrderParams {
				p := testCreateBody()
				p.SubItems = nil
				return p
			}(),
			expectedErr: NewValidationError("invalid order: order must have 1-20 items"),
		},
		{
			name: "fails with unknown status",
			body: func() orders.CreateOrderParams {
				p := testCreateBody()
				p.Status = "Baking"
				return p
			}(),
			expectedErr: NewValidationError(`invalid order status: "Baking"`),
		},
		{
			name:        "fails with db error",
			body:        testCreateBody(),
			mockErr:     errors.New("db error"),
			expectedErr: NewInternalServerError(nil),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockOrderRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockOrder.Id != 0 || tc.mockErr != nil {
				mockRepo.On("CreateOrder", mock.MatchedBy(func(p database.CreateOrderParams) bool {
					return p.Number != "" && p.CustomerName == "Mario Rossi" && p.Status == "Received"
				})).Return(tc.mockOrder, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)

			var req *http.Request
			switch v := tc.body.(type) {
			case string:
				req = httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(v))
			case orders.CreateOrderParams:
				body, err := json.Marshal(v)
				require.NoError(t, err)
				req = httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBuffer(body))
			default:
				t.Fatalf("unsupported request body type: %T", v)
			}

			rr := httptest.NewRecorder()
			app.createOrder(rr, req)

			if tc.success {
				assert.Equal(t, http.StatusCreated, rr.Code)

				var order types.Order
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&order))
				assert.Equal(t, tc.mockOrder.Id, order.Id)
				assert.Equal(t, tc.mockOrder.Number, order.Number)
				assert.Equal(t, types.StatusReceived, order.Status)
				assert.Len(t, order.SubItems, 1)
			} else {
				var apiErr ApiError
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&apiErr))
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code)
				assert.Equal(t, *tc.expectedErr, apiErr)
			}
		})
	}
}

func TestListOrdersHandler(t *testing.T) {
	tcases := []struct {
		name         string
		target       string
		mockParams   *database.ListOrdersParams
		mockOrders   []database.Order
		expectedCode int
	}{
		{
			name:         "lists all orders",
			target:       "/api/orders",
			mockParams:   &database.ListOrdersParams{},
			mockOrders:   []database.Order{testDbOrder(1, types.StatusReceived)},
			expectedCode: http.StatusOK,
		},
		{
			name:   "filters by status with paging",
			target: "/api/orders?status=Ready&limit=5&offset=10&includeSubItems=true",
			mockParams: &database.ListOrdersParams{
				Status:          "Ready",
				Limit:           5,
				Offset:          10,
				IncludeSubItems: true,
			},
			mockOrders:   []database.Order{testDbOrder(2, types.StatusReady)},
			expectedCode: http.StatusOK,
		},
		{
			name:         "rejects unknown status",
			target:       "/api/orders?status=Baking",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "rejects non-numeric limit",
			target:       "/api/orders?limit=abc",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockOrderRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockParams != nil {
				mockRepo.On("ListOrders", *tc.mockParams).Return(tc.mockOrders, nil).Once()
			}

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			app.listOrders(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var list []types.Order
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
				assert.Len(t, list, len(tc.mockOrders))
			}
		})
	}
}

func TestGetOrderHandler(t *testing.T) {
	tcases := []struct {
		name         string
		orderId      string
		mockOrder    database.Order
		mockErr      error
		expectedCode int
	}{
		{
			name:         "returns an order",
			orderId:      "1",
			mockOrder:    testDbOrder(1, types.StatusEnRoute),
			expectedCode: http.StatusOK,
		},
		{
			name:         "unknown order",
			orderId:      "99",
			mockErr:      sql.ErrNoRows,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "non-numeric id",
			orderId:      "abc",
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockOrderRepository{}
			defer mockRepo.AssertExpectations(t)

			if tc.mockOrder.Id != 0 || tc.mockErr != nil {
				mockRepo.On("GetOrderById", mock.AnythingOfType("int")).Return(tc.mockOrder, tc.mockErr).Once()
			}

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/orders/"+tc.orderId, nil)
			req.SetPathValue("id", tc.orderId)
			app.getOrder(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				var order types.Order
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&order))
				assert.Equal(t, tc.mockOrder.Id, order.Id)
				assert.Equal(t, types.OrderStatus(tc.mockOrder.Status), order.Status)
			}
		})
	}
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	t.Run("updates the status", func(t *testing.T) {
		mockRepo := &database.MockOrderRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetOrderById", 1).Return(testDbOrder(1, types.StatusReceived), nil).Once()
		mockRepo.On("UpdateOrderStatus", 1, "Preparing").Return(testDbOrder(1, types.StatusPreparing), nil).Once()

		app := newTestApp(t, mockRepo)
		body, err := json.Marshal(UpdateStatusRequest{Status: "Preparing"})
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", bytes.NewBuffer(body))
		req.SetPathValue("id", "1")
		app.updateOrderStatus(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var order types.Order
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&order))
		assert.Equal(t, types.StatusPreparing, order.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		mockRepo := &database.MockOrderRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", strings.NewReader(`{"status":"Baking"}`))
		req.SetPathValue("id", "1")
		app.updateOrderStatus(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything)
	})

	t.Run("unknown order", func(t *testing.T) {
		mockRepo := &database.MockOrderRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetOrderById", 99).Return(database.Order{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/99/status", strings.NewReader(`{"status":"Ready"}`))
		req.SetPathValue("id", "99")
		app.updateOrderStatus(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteOrderHandler(t *testing.T) {
	t.Run("deletes an order", func(t *testing.T) {
		mockRepo := &database.MockOrderRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("DeleteOrder", 1).Return(nil).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil)
		req.SetPathValue("id", "1")
		app.deleteOrder(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		mockRepo := &database.MockOrderRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("DeleteOrder", 99).Return(sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/orders/99", nil)
		req.SetPathValue("id", "99")
		app.deleteOrder(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListStatusesHandler(t *testing.T) {
	app := newTestApp(t, &database.MockOrderRepository{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statuses", nil)
	app.listStatuses(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var statuses []types.OrderStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&statuses))
	assert.Equal(t, types.Statuses(), statuses)
}

func TestStatisticsHandler(t *testing.T) {
	mockRepo := &database.MockOrderRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("StatusCounts").Return([]database.StatusCount{
		{Status: "Received", Count: 2},
	}, nil).Once()

	app := newTestApp(t, mockRepo)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	app.statistics(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var counts map[types.OrderStatus]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&counts))
	assert.Equal(t, 2, counts[types.StatusReceived])
	assert.Equal(t, 0, counts[types.StatusDelivered])
	assert.Len(t, counts, len(types.Statuses()))
}

func TestAdminMessageHandler(t *testing.T) {
	t.Run("accepts a message", func(t *testing.T) {
		app := newTestApp(t, &database.MockOrderRepository{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/admin/message", strings.NewReader(`{"message":"closing early"}`))
		app.adminMessage(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
	})

	t.Run("rejects an empty message", func(t *testing.T) {
		app := newTestApp(t, &database.MockOrderRepository{})

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/admin/message", strings.NewReader(`{}`))
		app.adminMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_serveWs(t *testing.T) {
	t.Run("upgrades and registers the connection", func(t *testing.T) {
		app := newTestApp(t, &database.MockOrderRepository{})

		srv := httptest.NewServer(http.HandlerFunc(app.serveWs))
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + testAdminToken

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

		// registration happens on the server side of the handshake, so
		// wait for the admin to show up in the admin room
		require.Eventually(t, func() bool {
			return len(app.ts.Registry().MembersOf(server.AdminRoom)) == 1
		}, time.Second, 10*time.Millisecond)

		app.ts.AdminMessage("closing early")

		conn.SetReadDeadline(time.Now().Add(time.Second))
		var msg server.ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, server.EventAdminMessage, msg.Event)
		assert.True(t, msg.Success)
		assert.Equal(t, "closing early", msg.Data)
	})

	t.Run("rejects a disallowed origin", func(t *testing.T) {
		app := newTestApp(t, &database.MockOrderRepository{})

		srv := httptest.NewServer(http.HandlerFunc(app.serveWs))
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
		header := http.Header{}
		header.Set("Origin", "http://evil.example.com")

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		if conn != nil {
			conn.Close()
		}
		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
