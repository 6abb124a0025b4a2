package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/casaluna/casaluna-api/models"
)

// reportCacheTTL is deliberately short; mutation-driven invalidation is
// the primary freshness mechanism, the TTL just caps staleness when
// invalidation is missed.
const reportCacheTTL = 5 * time.Minute

// DailyRevenue is one day's revenue and order count
type DailyRevenue struct {
	Date       string          `json:"date"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// TypeRevenue is the revenue split for one order type
type TypeRevenue struct {
	OrderType  string          `json:"order_type"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// PopularItem is one catalog item ranked by quantity sold
type PopularItem struct {
	MenuItemID uint            `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// CompletionTimes holds order completion duration percentiles in minutes
type CompletionTimes struct {
	OrderCount int     `json:"order_count"`
	P50Minutes float64 `json:"p50_minutes"`
	P90Minutes float64 `json:"p90_minutes"`
	P99Minutes float64 `json:"p99_minutes"`
}

// CustomerSegment buckets customers by order volume
type CustomerSegment struct {
	Segment       string          `json:"segment"`
	CustomerCount int             `json:"customer_count"`
	TotalSpend    decimal.Decimal `json:"total_spend"`
}

// ReportService computes read-only dashboard aggregations over historical
// orders. It never mutates and it never propagates internal errors to the
// dashboard: failures degrade to empty datasets.
type ReportService struct {
	db    *gorm.DB
	cache *CacheService
}

// NewReportService creates a report service bound to a database handle
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{
		db:    db,
		cache: GetCacheService(),
	}
}

// paidOrders is the base scope for revenue reports: orders that were paid
// and not canceled, created within the range.
func (s *ReportService) paidOrders(from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.
		Where("payment_status = ?", models.PaymentStatusPaid).
		Where("status <> ?", models.OrderStatusCanceled).
		Where("created_at >= ? AND created_at < ?", from, to).
		Find(&orders).Error
	return orders, err
}

// RevenueByDay aggregates paid order revenue per calendar day
func (s *ReportService) RevenueByDay(ctx context.Context, from, to time.Time) []DailyRevenue {
	cacheKey := fmt.Sprintf("revenue-by-day:%d:%d", from.Unix(), to.Unix())
	var cached []DailyRevenue
	if s.cache.GetReport(ctx, cacheKey, &cached) {
		return cached
	}

	orders, err := s.paidOrders(from, to)
	if err != nil {
		log.Printf("Revenue-by-day report failed: %v", err)
		return []DailyRevenue{}
	}

	byDay := make(map[string]*DailyRevenue)
	for _, order := range orders {
		day := order.CreatedAt.Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &DailyRevenue{Date: day, Revenue: decimal.Zero}
			byDay[day] = entry
		}
		entry.OrderCount++
		entry.Revenue = entry.Revenue.Add(order.Total)
	}

	result := make([]DailyRevenue, 0, len(byDay))
	for _, entry := range byDay {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })

	s.cache.SetReport(ctx, cacheKey, result, reportCacheTTL)
	return result
}

// RevenueByType aggregates paid order revenue per order type
func (s *ReportService) RevenueByType(ctx context.Context, from, to time.Time) []TypeRevenue {
	cacheKey := fmt.Sprintf("revenue-by-type:%d:%d", from.Unix(), to.Unix())
	var cached []TypeRevenue
	if s.cache.GetReport(ctx, cacheKey, &cached) {
		return cached
	}

	orders, err := s.paidOrders(from, to)
	if err != nil {
		log.Printf("Revenue-by-type report failed: %v", err)
		return []TypeRevenue{}
	}

	byType := make(map[string]*TypeRevenue)
	for _, order := range orders {
		entry, ok := byType[order.OrderType]
		if !ok {
			entry = &TypeRevenue{OrderType: order.OrderType, Revenue: decimal.Zero}
			byType[order.OrderType] = entry
		}
		entry.OrderCount++
		entry.Revenue = entry.Revenue.Add(order.Total)
	}

	result := make([]TypeRevenue, 0, len(byType))
	for _, entry := range byType {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderType < result[j].OrderType })

	s.cache.SetReport(ctx, cacheKey, result, reportCacheTTL)
	return result
}

// PopularItems ranks catalog items by quantity sold across paid orders
func (s *ReportService) PopularItems(ctx context.Context, from, to time.Time, limit int) []PopularItem {
	if limit <= 0 {
		limit = 10
	}
	cacheKey := fmt.Sprintf("popular-items:%d:%d:%d", from.Unix(), to.Unix(), limit)
	var cached []PopularItem
	if s.cache.GetReport(ctx, cacheKey, &cached) {
		return cached
	}

	orders, err := s.paidOrders(from, to)
	if err != nil {
		log.Printf("Popular-items report failed: %v", err)
		return []PopularItem{}
	}
	orderIDs := make([]uint, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
	}
	if len(orderIDs) == 0 {
		return []PopularItem{}
	}

	var items []models.OrderItem
	if err := s.db.Preload("MenuItem").Where("order_id IN ?", orderIDs).Find(&items).Error; err != nil {
		log.Printf("Popular-items report failed: %v", err)
		return []PopularItem{}
	}

	byItem := make(map[uint]*PopularItem)
	for _, item := range items {
		entry, ok := byItem[item.MenuItemID]
		if !ok {
			entry = &PopularItem{
				MenuItemID: item.MenuItemID,
				Name:       item.MenuItem.Name,
				Revenue:    decimal.Zero,
			}
			byItem[item.MenuItemID] = entry
		}
		entry.Quantity += item.Quantity
		entry.Revenue = entry.Revenue.Add(item.LineTotal())
	}

	result := make([]PopularItem, 0, len(byItem))
	for _, entry := range byItem {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Quantity > result[j].Quantity })
	if len(result) > limit {
		result = result[:limit]
	}

	s.cache.SetReport(ctx, cacheKey, result, reportCacheTTL)
	return result
}

// CompletionPercentiles measures how long orders took from creation to the
// COMPLETED audit entry
func (s *ReportService) CompletionPercentiles(ctx context.Context, from, to time.Time) CompletionTimes {
	cacheKey := fmt.Sprintf("completion-times:%d:%d", from.Unix(), to.Unix())
	var cached CompletionTimes
	if s.cache.GetReport(ctx, cacheKey, &cached) {
		return cached
	}

	var completions []models.OrderStatusUpdate
	err := s.db.Preload("Order").
		Where("status = ?", models.OrderStatusCompleted).
		Where("created_at >= ? AND created_at < ?", from, to).
		Find(&completions).Error
	if err != nil {
		log.Printf("Completion-times report failed: %v", err)
		return CompletionTimes{}
	}

	durations := make([]float64, 0, len(completions))
	for _, completion := range completions {
		if completion.Order.ID == 0 {
			continue
		}
		minutes := completion.CreatedAt.Sub(completion.Order.CreatedAt).Minutes()
		if minutes >= 0 {
			durations = append(durations, minutes)
		}
	}
	if len(durations) == 0 {
		return CompletionTimes{}
	}
	sort.Float64s(durations)

	result := CompletionTimes{
		OrderCount: len(durations),
		P50Minutes: percentile(durations, 50),
		P90Minutes: percentile(durations, 90),
		P99Minutes: percentile(durations, 99),
	}

	s.cache.SetReport(ctx, cacheKey, result, reportCacheTTL)
	return result
}

// CustomerSegments buckets customers by how often they ordered in the range
func (s *ReportService) CustomerSegments(ctx context.Context, from, to time.Time) []CustomerSegment {
	cacheKey := fmt.Sprintf("customer-segments:%d:%d", from.Unix(), to.Unix())
	var cached []CustomerSegment
	if s.cache.GetReport(ctx, cacheKey, &cached) {
		return cached
	}

	orders, err := s.paidOrders(from, to)
	if err != nil {
		log.Printf("Customer-segments report failed: %v", err)
		return []CustomerSegment{}
	}

	type customerStats struct {
		orders int
		spend  decimal.Decimal
	}
	byCustomer := make(map[uint]*customerStats)
	for _, order := range orders {
		stats, ok := byCustomer[order.CustomerID]
		if !ok {
			stats = &customerStats{spend: decimal.Zero}
			byCustomer[order.CustomerID] = stats
		}
		stats.orders++
		stats.spend = stats.spend.Add(order.Total)
	}

	segments := map[string]*CustomerSegment{
		"new":      {Segment: "new", TotalSpend: decimal.Zero},
		"repeat":   {Segment: "repeat", TotalSpend: decimal.Zero},
		"frequent": {Segment: "frequent", TotalSpend: decimal.Zero},
	}
	for _, stats := range byCustomer {
		var bucket string
		switch {
		case stats.orders >= 5:
			bucket = "frequent"
		case stats.orders >= 2:
			bucket = "repeat"
		default:
			bucket = "new"
		}
		segments[bucket].CustomerCount++
		segments[bucket].TotalSpend = segments[bucket].TotalSpend.Add(stats.spend)
	}

	result := []CustomerSegment{*segments["new"], *segments["repeat"], *segments["frequent"]}

	s.cache.SetReport(ctx, cacheKey, result, reportCacheTTL)
	return result
}

// percentile returns the p-th percentile of sorted values using
// nearest-rank selection
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
