package database

import (
	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockOrderRepository) CreateOrder(params CreateOrderParams) (Order, error) {
	args := m.Called(params)
	return args.Get(0).(Order), args.Error(1)
}
func (m *MockOrderRepository) GetOrderById(orderId int) (Order, error) {
	args := m.Called(orderId)
	return args.Get(0).(Order), args.Error(1)
}
func (m *MockOrderRepository) ListOrders(params ListOrdersParams) ([]Order, error) {
	args := m.Called(params)
	return args.Get(0).([]Order), args.Error(1)
}
func (m *MockOrderRepository) UpdateOrder(params UpdateOrderParams) (Order, error) {
	args := m.Called(params)
	return args.Get(0).(Order), args.Error(1)
}
func (m *MockOrderRepository) UpdateOrderStatus(orderId int, status string) (Order, error) {
	args := m.Called(orderId, status)
	return args.Get(0).(Order), args.Error(1)
}
func (m *MockOrderRepository) DeleteOrder(orderId int) error {
	args := m.Called(orderId)
	return args.Error(0)
}
func (m *MockOrderRepository) StatusCounts() ([]StatusCount, error) {
	args := m.Called()
	return args.Get(0).([]StatusCount), args.Error(1)
}
