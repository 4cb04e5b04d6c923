package service

import (
	"sort"
	"time"

	"go-stock-resi/internal/model"
)

const recentActivityLimit = 5

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts    int                 `json:"total_products"`
	LowStockCount    int                 `json:"low_stock_count"`
	OutOfStockCount  int                 `json:"out_of_stock_count"`
	ExpiringCount    int                 `json:"expiring_count"`
	ExpiredCount     int                 `json:"expired_count"`
	MonthInbound     int                 `json:"month_inbound"`
	MonthOutbound    int                 `json:"month_outbound"`
	LowStockItems    []model.Product     `json:"low_stock_items"`
	RecentActivities []model.Transaction `json:"recent_activities"`
}

type DashboardService interface {
	GetStockMovement(days int, now time.Time) []StockMovementData
	GetDashboardStats(now time.Time) *DashboardStats
}

type dashboardService struct {
	inventory InventoryService
}

func NewDashboardService(inventory InventoryService) DashboardService {
	return &dashboardService{inventory: inventory}
}

// GetStockMovement sums movement quantities per UTC day over the last days
// days, including today. Days without movements are reported as zero.
func (s *dashboardService) GetStockMovement(days int, now time.Time) []StockMovementData {
	if days <= 0 {
		days = 7
	}
	today := startOfDay(now)
	first := today.AddDate(0, 0, -(days - 1))

	byDay := make(map[string]*StockMovementData, days)
	results := make([]StockMovementData, days)
	for i := range results {
		d := first.AddDate(0, 0, i).Format(time.DateOnly)
		results[i].Date = d
		byDay[d] = &results[i]
	}

	for _, t := range s.inventory.GetAllTransactions() {
		data, ok := byDay[t.Date.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		if t.Type == model.TxIn {
			data.Inbound += t.Quantity
		} else {
			data.Outbound += t.Quantity
		}
	}
	return results
}

// GetDashboardStats counts "this month" movements (number of ledger rows,
// not units) in the calendar month of now.
func (s *dashboardService) GetDashboardStats(now time.Time) *DashboardStats {
	products := s.inventory.GetAllProducts()
	transactions := s.inventory.GetAllTransactions()

	stats := &DashboardStats{
		TotalProducts:    len(products),
		LowStockItems:    []model.Product{},
		RecentActivities: []model.Transaction{},
	}

	for _, p := range products {
		if p.IsLowStock() {
			stats.LowStockCount++
			stats.LowStockItems = append(stats.LowStockItems, p)
		}
		if p.IsOutOfStock() {
			stats.OutOfStockCount++
		}
		switch p.ExpirationStatus(now) {
		case model.ExpirationExpiring:
			stats.ExpiringCount++
		case model.ExpirationExpired:
			stats.ExpiredCount++
		}
	}
	sort.SliceStable(stats.LowStockItems, func(i, j int) bool {
		return stats.LowStockItems[i].Quantity < stats.LowStockItems[j].Quantity
	})

	monthStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	for i, t := range transactions {
		if i < recentActivityLimit {
			stats.RecentActivities = append(stats.RecentActivities, t)
		}
		if t.Date.Before(monthStart) {
			continue
		}
		if t.Type == model.TxIn {
			stats.MonthInbound++
		} else {
			stats.MonthOutbound++
		}
	}
	return stats
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
