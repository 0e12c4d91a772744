// Package admin serves the operations dashboard: today's café and booking
// activity, member counts, and per-site breakdowns.
package admin

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-workspace/backend/internal/timeutil"
	"github.com/atrium-workspace/backend/pkg/response"
)

// Handler handles GET /admin/dashboard.
type Handler struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
}

// NewHandler creates an admin dashboard handler. loc is the billing timezone
// that decides what "today" means.
func NewHandler(pool *pgxpool.Pool, loc *time.Location) *Handler {
	return &Handler{pool: pool, loc: loc, now: time.Now}
}

// DashboardResponse is the JSON shape for the admin dashboard.
type DashboardResponse struct {
	Date                string      `json:"date"`
	TotalMembers        int         `json:"total_members"`
	TotalOrganizations  int         `json:"total_organizations"`
	OrdersToday         int         `json:"orders_today"`
	CafeRevenueCents    int         `json:"cafe_revenue_cents_today"`
	BookingsToday       int         `json:"bookings_today"`
	RoomCreditsToday    int         `json:"room_credits_today"`
	Sites               []SiteStats `json:"sites"`
}

// SiteStats is one site's slice of today's activity.
type SiteStats struct {
	Site             string `json:"site"`
	Members          int    `json:"members"`
	OrdersToday      int    `json:"orders_today"`
	CafeRevenueCents int    `json:"cafe_revenue_cents_today"`
}

// Dashboard handles GET /admin/dashboard (admin only; enforced by route
// middleware). Café revenue excludes cancelled orders; booking credits
// exclude cancelled bookings.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	today := timeutil.CivilDateOf(h.now(), h.loc)
	dayStart, dayEnd := timeutil.DayBounds(today, h.loc)

	out := DashboardResponse{Date: today.String()}

	const membersQ = `SELECT COUNT(*) FROM users`
	if err := h.pool.QueryRow(ctx, membersQ).Scan(&out.TotalMembers); err != nil {
		response.Internal(c, "failed to load member count")
		return
	}
	const orgsQ = `SELECT COUNT(*) FROM organizations`
	if err := h.pool.QueryRow(ctx, orgsQ).Scan(&out.TotalOrganizations); err != nil {
		response.Internal(c, "failed to load organization count")
		return
	}

	const ordersQ = `SELECT COUNT(*), COALESCE(SUM(total_amount_cents), 0)
		FROM cafe_orders
		WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2`
	if err := h.pool.QueryRow(ctx, ordersQ, dayStart, dayEnd).Scan(&out.OrdersToday, &out.CafeRevenueCents); err != nil {
		response.Internal(c, "failed to load order stats")
		return
	}

	const bookingsQ = `SELECT COUNT(*), COALESCE(SUM(credits_used), 0)
		FROM room_bookings
		WHERE status <> 'cancelled' AND start_time >= $1 AND start_time < $2`
	if err := h.pool.QueryRow(ctx, bookingsQ, dayStart, dayEnd).Scan(&out.BookingsToday, &out.RoomCreditsToday); err != nil {
		response.Internal(c, "failed to load booking stats")
		return
	}

	sites, err := h.siteStats(ctx, dayStart, dayEnd)
	if err != nil {
		response.Internal(c, "failed to load site stats")
		return
	}
	out.Sites = sites

	response.OK(c, out)
}

func (h *Handler) siteStats(ctx context.Context, dayStart, dayEnd time.Time) ([]SiteStats, error) {
	const q = `SELECT m.site, m.members, COALESCE(o.orders, 0), COALESCE(o.revenue, 0)
		FROM (SELECT site, COUNT(*) AS members FROM users GROUP BY site) m
		LEFT JOIN (
			SELECT site, COUNT(*) AS orders, SUM(total_amount_cents) AS revenue
			FROM cafe_orders
			WHERE status <> 'cancelled' AND created_at >= $1 AND created_at < $2
			GROUP BY site
		) o ON o.site = m.site
		ORDER BY m.site`
	rows, err := h.pool.Query(ctx, q, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SiteStats
	for rows.Next() {
		var s SiteStats
		if err := rows.Scan(&s.Site, &s.Members, &s.OrdersToday, &s.CafeRevenueCents); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
