package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"repairshop-backend/models"
	"repairshop-backend/utils"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type PeriodSummary struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type MonthlyRevenue struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	RepairsCount int     `json:"repairs_count"`
}

type ServiceStat struct {
	ServiceID uuid.UUID `json:"service_id"`
	Name      string    `json:"name"`
	Count     int       `json:"count"`
}

type TechnicianStat struct {
	TechnicianID  uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	TotalRepairs  int       `json:"total_repairs"`
	Completed     int       `json:"completed"`
	InProgress    int       `json:"in_progress"`
	AvgRepairDays float64   `json:"avg_repair_time"`
}

type Dashboard struct {
	StatusCounts   map[models.RepairStatus]int `json:"status_counts"`
	ThisMonth      PeriodSummary               `json:"this_month"`
	LastMonth      PeriodSummary               `json:"last_month"`
	TotalCustomers int64                       `json:"total_customers"`
	InProgress     int                         `json:"in_progress"`
	AvgRepairDays  float64                     `json:"avg_repair_days"`
	RecentRepairs  []models.Repair             `json:"recent_repairs"`
	MonthlyRevenue []MonthlyRevenue            `json:"monthly_revenue"`
	TopServices    []ServiceStat               `json:"top_services"`
	TopTechnicians []TechnicianStat            `json:"top_technicians"`
}

// DashboardInput is everything Aggregate needs, already loaded.
type DashboardInput struct {
	Now            time.Time
	Repairs        []models.Repair
	Recent         []models.Repair
	Technicians    []models.User
	Services       []models.Service
	TotalCustomers int64
}

const (
	dashboardTopN   = 5
	dashboardMonths = 6
)

func countsRevenue(s models.RepairStatus) bool {
	return s != models.StatusCancelled
}

// Aggregate computes dashboard figures. It has no side effects and returns
// zero entries for technicians and services without repairs.
func Aggregate(in DashboardInput) Dashboard {
	d := Dashboard{
		StatusCounts:   make(map[models.RepairStatus]int, len(models.AllStatuses)),
		TotalCustomers: in.TotalCustomers,
		RecentRepairs:  in.Recent,
	}
	for _, st := range models.AllStatuses {
		d.StatusCounts[st] = 0
	}

	thisMonth := utils.BeginningOfMonth(in.Now)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	seriesStart := thisMonth.AddDate(0, -(dashboardMonths - 1), 0)

	monthly := make(map[string]*MonthlyRevenue, dashboardMonths)
	for i := 0; i < dashboardMonths; i++ {
		key := seriesStart.AddDate(0, i, 0).Format("2006-01")
		monthly[key] = &MonthlyRevenue{Month: key}
		d.MonthlyRevenue = append(d.MonthlyRevenue, MonthlyRevenue{Month: key})
	}

	thisRevenue, lastRevenue := decimal.Zero, decimal.Zero
	monthRevenue := make(map[string]decimal.Decimal, dashboardMonths)
	serviceCounts := make(map[uuid.UUID]int)

	for _, r := range in.Repairs {
		d.StatusCounts[r.Status]++
		if !IsTerminal(r.Status) {
			d.InProgress++
		}
		if r.ServiceID != nil {
			serviceCounts[*r.ServiceID]++
		}

		created := r.CreatedAt.In(in.Now.Location())
		total := decimal.NewFromFloat(r.TotalCost)
		switch {
		case !created.Before(thisMonth):
			d.ThisMonth.Count++
			if countsRevenue(r.Status) {
				thisRevenue = thisRevenue.Add(total)
			}
		case !created.Before(lastMonth):
			d.LastMonth.Count++
			if countsRevenue(r.Status) {
				lastRevenue = lastRevenue.Add(total)
			}
		}
		if !created.Before(seriesStart) {
			key := created.Format("2006-01")
			if m, ok := monthly[key]; ok {
				m.RepairsCount++
				if countsRevenue(r.Status) {
					monthRevenue[key] = monthRevenue[key].Add(total)
				}
			}
		}
	}
	d.ThisMonth.Revenue = thisRevenue.Round(2).InexactFloat64()
	d.LastMonth.Revenue = lastRevenue.Round(2).InexactFloat64()
	for i, m := range d.MonthlyRevenue {
		d.MonthlyRevenue[i].RepairsCount = monthly[m.Month].RepairsCount
		d.MonthlyRevenue[i].Revenue = monthRevenue[m.Month].Round(2).InexactFloat64()
	}

	for _, svc := range in.Services {
		d.TopServices = append(d.TopServices, ServiceStat{ServiceID: svc.ID, Name: svc.Name, Count: serviceCounts[svc.ID]})
	}
	sort.SliceStable(d.TopServices, func(i, j int) bool { return d.TopServices[i].Count > d.TopServices[j].Count })
	if len(d.TopServices) > dashboardTopN {
		d.TopServices = d.TopServices[:dashboardTopN]
	}

	techs := TechnicianStats(in.Repairs, in.Technicians)
	sort.SliceStable(techs, func(i, j int) bool { return techs[i].Completed > techs[j].Completed })
	if len(techs) > dashboardTopN {
		techs = techs[:dashboardTopN]
	}
	d.TopTechnicians = techs
	d.AvgRepairDays = averageRepairDays(in.Repairs)
	return d
}

// TechnicianStats reports per technician totals, ordered by total repairs.
func TechnicianStats(repairs []models.Repair, technicians []models.User) []TechnicianStat {
	byID := make(map[uuid.UUID][]models.Repair, len(technicians))
	for _, r := range repairs {
		if r.TechnicianID != nil {
			byID[*r.TechnicianID] = append(byID[*r.TechnicianID], r)
		}
	}

	stats := make([]TechnicianStat, 0, len(technicians))
	for _, t := range technicians {
		assigned := byID[t.ID]
		st := TechnicianStat{
			TechnicianID:  t.ID,
			FirstName:     t.FirstName,
			LastName:      t.LastName,
			TotalRepairs:  len(assigned),
			AvgRepairDays: averageRepairDays(assigned),
		}
		for _, r := range assigned {
			switch {
			case r.Status == models.StatusDelivered:
				st.Completed++
			case !IsTerminal(r.Status):
				st.InProgress++
			}
		}
		stats = append(stats, st)
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TotalRepairs > stats[j].TotalRepairs })
	return stats
}

// averageRepairDays averages completed_at - started_at over repairs having both.
func averageRepairDays(repairs []models.Repair) float64 {
	sum := decimal.Zero
	n := 0
	for _, r := range repairs {
		if r.StartedAt == nil || r.CompletedAt == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(r.CompletedAt.Sub(*r.StartedAt).Hours() / 24))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}

type RevenuePeriod struct {
	Period       string  `json:"period"`
	Revenue      float64 `json:"revenue"`
	Collected    float64 `json:"collected"`
	RepairsCount int     `json:"repairs_count"`
}

// PeriodKey formats t for the day, week (ISO) or month grouping.
func PeriodKey(t time.Time, groupBy string) (string, error) {
	switch groupBy {
	case "", "day":
		return t.Format("2006-01-02"), nil
	case "week":
		y, w := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w), nil
	case "month":
		return t.Format("2006-01"), nil
	}
	return "", newValidationError("group_by", "must be day, week or month")
}

type revenueRow struct {
	CreatedAt      time.Time
	TotalCost      float64
	AdvancePayment float64
}

// RevenueQuery selects the rows of the revenue report in [start, end).
func RevenueQuery(start, end time.Time) (string, []interface{}, error) {
	return sq.Select("created_at", "total_cost", "advance_payment").
		From("repairs").
		Where(sq.GtOrEq{"created_at": start}).
		Where(sq.Lt{"created_at": end}).
		Where(sq.NotEq{"status": string(models.StatusCancelled)}).
		OrderBy("created_at").
		ToSql()
}

type DashboardService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewDashboardService(db *gorm.DB, log *zap.Logger) *DashboardService {
	return &DashboardService{db: db, log: log, now: time.Now}
}

// Dashboard loads the inputs concurrently and aggregates them.
func (s *DashboardService) Dashboard(ctx context.Context) (Dashboard, error) {
	in := DashboardInput{Now: s.now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).
			Select("id", "status", "service_id", "technician_id", "total_cost", "started_at", "completed_at", "created_at").
			Find(&in.Repairs).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Preload("Customer").
			Preload("Technician").
			Order("created_at DESC").
			Limit(10).
			Find(&in.Recent).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("role IN ?", []models.Role{models.RoleTechnician, models.RoleAdmin}).
			Find(&in.Technicians).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Find(&in.Services).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.User{}).
			Where("role = ?", models.RoleClient).
			Count(&in.TotalCustomers).Error
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return Aggregate(in), nil
}

func (s *DashboardService) Revenue(ctx context.Context, groupBy string, start, end time.Time) ([]RevenuePeriod, error) {
	if _, err := PeriodKey(start, groupBy); err != nil {
		return nil, err
	}
	query, args, err := RevenueQuery(start, end)
	if err != nil {
		return nil, err
	}

	var rows []revenueRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	type acc struct {
		revenue, collected decimal.Decimal
		count              int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, r := range rows {
		key, _ := PeriodKey(r.CreatedAt, groupBy)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
			order = append(order, key)
		}
		g.revenue = g.revenue.Add(decimal.NewFromFloat(r.TotalCost))
		g.collected = g.collected.Add(decimal.NewFromFloat(r.AdvancePayment))
		g.count++
	}
	sort.Strings(order)

	out := make([]RevenuePeriod, 0, len(order))
	for _, key := range order {
		g := groups[key]
		out = append(out, RevenuePeriod{
			Period:       key,
			Revenue:      g.revenue.Round(2).InexactFloat64(),
			Collected:    g.collected.Round(2).InexactFloat64(),
			RepairsCount: g.count,
		})
	}
	return out, nil
}

func (s *DashboardService) Technicians(ctx context.Context) ([]TechnicianStat, error) {
	var techs []models.User
	var repairs []models.Repair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("role IN ?", []models.Role{models.RoleTechnician, models.RoleAdmin}).
			Find(&techs).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Select("id", "status", "technician_id", "started_at", "completed_at").
			Where("technician_id IS NOT NULL").
			Find(&repairs).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return TechnicianStats(repairs, techs), nil
}

// RepairsBetween loads repairs created in [start, end) for export.
func (s *DashboardService) RepairsBetween(ctx context.Context, start, end time.Time) ([]models.Repair, error) {
	var repairs []models.Repair
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Technician").
		Preload("DeviceType").
		Preload("Brand").
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at").
		Find(&repairs).Error
	return repairs, err
}
