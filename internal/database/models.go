package database

import "time"

type Order struct {
	Id           int
	Number       string
	CustomerName string
	Address      string
	Latitude     float64
	Longitude    float64
	Status       string
	TotalPrice   float64
	SubItems     []SubItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SubItem struct {
	Id      int
	OrderId int
	Title   string
	Type    string
	Amount  int
	Price   float64
}

type StatusCount struct {
	Status string
	Count  int
}

type CreateOrderParams struct {
	Number       string
	CustomerName string
	Address      string
	Latitude     float64
	Longitude    float64
	Status       string
	SubItems     []CreateSubItemParams
}

type CreateSubItemParams struct {
	Title  string
	Type   string
	Amount int
	Price  float64
}

type UpdateOrderParams struct {
	OrderId      int
	CustomerName string
	Address      string
	Latitude     float64
	Longitude    float64
	SubItems     []CreateSubItemParams
}

type ListOrdersParams struct {
	Status          string
	Limit           int
	Offset          int
	IncludeSubItems bool
}
