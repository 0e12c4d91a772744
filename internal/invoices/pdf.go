package invoices

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// RenderPDF renders a monthly statement as a PDF document.
func RenderPDF(st *Statement) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Monthly Statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(st.Organization.Name, props.Text{Style: fontstyle.Bold}),
			text.New(st.Organization.BillingAddress, props.Text{Top: 5}),
			text.New(st.Organization.BillingEmail, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New(fmt.Sprintf("Period: %s %d", st.Month, st.Year), props.Text{Align: align.Right}),
			text.New("Site: "+st.Organization.Site, props.Text{Top: 5, Align: align.Right}),
		),
	)

	// Café orders section (money).
	m.AddRow(10,
		text.NewCol(12, "Café Orders", props.Text{Size: 13, Style: fontstyle.Bold}),
	)
	m.AddRow(8,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(5, "Member", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Status", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, o := range st.Orders {
		m.AddRow(7,
			text.NewCol(3, o.CreatedAt.In(st.PeriodStart.Location()).Format("02 Jan 15:04"), props.Text{Size: 9}),
			text.NewCol(5, o.MemberName, props.Text{Size: 9}),
			text.NewCol(2, string(o.Status), props.Text{Size: 9}),
			text.NewCol(2, formatCents(o.AmountCents), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Café total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, formatCents(st.CafeTotalCents), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	// Room bookings section (credits, not money).
	m.AddRow(10,
		text.NewCol(12, "Meeting Room Bookings", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}),
	)
	m.AddRow(8,
		text.NewCol(3, "Start", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Room", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Member", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Credits", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, b := range st.Bookings {
		m.AddRow(7,
			text.NewCol(3, b.StartTime.In(st.PeriodStart.Location()).Format("02 Jan 15:04"), props.Text{Size: 9}),
			text.NewCol(4, b.RoomName, props.Text{Size: 9}),
			text.NewCol(3, b.MemberName, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", b.CreditCost), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Credits total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, fmt.Sprintf("%d", st.RoomCreditsTotal), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render statement pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func formatCents(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
