package database

type OrderRepository interface {
	Ping() error
	CreateOrder(params CreateOrderParams) (Order, error)
	GetOrderById(orderId int) (Order, error)
	ListOrders(params ListOrdersParams) ([]Order, error)
	UpdateOrder(params UpdateOrderParams) (Order, error)
	UpdateOrderStatus(orderId int, status string) (Order, error)
	DeleteOrder(orderId int) error
	StatusCounts() ([]StatusCount, error)
}
