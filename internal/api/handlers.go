package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/server"
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type AdminMessageRequest struct {
	Message string `json:"message"`
}

func (s *TrackerApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.orders.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *TrackerApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *TrackerApp) writeOrderError(w http.ResponseWriter, err error) {
	var errResp *ApiError
	switch {
	case errors.Is(err, orders.ErrInvalidOrder), errors.Is(err, orders.ErrInvalidStatus):
		errResp = NewValidationError(err.Error())
	case errors.Is(err, orders.ErrOrderNotFound):
		errResp = NewNotFoundError()
	default:
		errResp = NewInternalServerError(err)
	}

	s.writeJson(w, errResp.StatusCode, errResp)
}

func orderIdFromPath(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

// createOrder persists the order, then broadcasts. The broadcast is
// issued only after the write is acknowledged and its outcome never
// affects the response.
func (s *TrackerApp) createOrder(w http.ResponseWriter, r *http.Request) {
	var params orders.CreateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, err := s.orders.Create(params)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.ts.OrderCreated(order)
	s.writeJson(w, http.StatusCreated, order)
}

func (s *TrackerApp) listOrders(w http.ResponseWriter, r *http.Request) {
	q := orders.ListQuery{
		Status:          types.OrderStatus(r.URL.Query().Get("status")),
		IncludeSubItems: r.URL.Query().Get("includeSubItems") == "true",
	}

	var err error
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		q.Limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		q.Offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	list, err := s.orders.List(q)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, list)
}

func (s *TrackerApp) getOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := orderIdFromPath(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, err := s.orders.Get(orderId)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, order)
}

func (s *TrackerApp) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := orderIdFromPath(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var params orders.UpdateOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, err := s.orders.Update(orderId, params)
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.ts.OrderUpdated(order)
	s.writeJson(w, http.StatusOK, order)
}

func (s *TrackerApp) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderId, err := orderIdFromPath(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	order, oldStatus, err := s.orders.UpdateStatus(orderId, types.OrderStatus(req.Status))
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.ts.OrderStatusChanged(order, oldStatus)
	s.writeJson(w, http.StatusOK, order)
}

func (s *TrackerApp) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderId, err := orderIdFromPath(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.orders.Delete(orderId); err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.ts.OrderDeleted(orderId)
	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *TrackerApp) listStatuses(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, types.Statuses())
}

func (s *TrackerApp) statistics(w http.ResponseWriter, _ *http.Request) {
	counts, err := s.orders.StatusCounts()
	if err != nil {
		s.writeOrderError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, counts)
}

func (s *TrackerApp) adminMessage(w http.ResponseWriter, r *http.Request) {
	var req AdminMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.ts.AdminMessage(req.Message)
	s.writeJson(w, http.StatusAccepted, nil)
}

// serveWs classifies the handshake and upgrades. Classification never
// rejects: a failed token check degrades the connection to guest.
func (s *TrackerApp) serveWs(w http.ResponseWriter, r *http.Request) {
	role := s.creds.ClassifyConnection(r)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(shortid.MustGenerate(), role, conn, s.ts, s.log)

	s.ts.RegisterClient(client)
	go client.Write()
	go client.Read()
}
