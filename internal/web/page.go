package web

import (
	"fmt"
	"net"

	"papercal/internal/render"
)

// pageData is the flattened view consumed by calendar.html.tmpl. All
// positions are pixels on the panel.
type pageData struct {
	Title        string
	Ready        bool
	Width        int
	Height       int
	GridHeight   int
	ColumnWidth  int
	DayHeight    int
	EntryHeight  int
	FooterTop    int
	FooterHeight int
	HLines       []int
	VLines       []int
	Cells        []cellData
	Footer       string
}

type cellData struct {
	Day     int
	Red     bool
	Today   bool
	Entries []render.Entry
	Left    int
	Top     int
	Height  int
}

func basePage() pageData {
	return pageData{
		Width:        render.PanelWidth,
		Height:       render.PanelHeight,
		ColumnWidth:  render.ColumnWidth,
		DayHeight:    render.DayHeight,
		EntryHeight:  render.EntryHeight,
		FooterTop:    render.PanelHeight - render.FooterHeight,
		FooterHeight: render.FooterHeight,
	}
}

func emptyPage() pageData {
	p := basePage()
	p.Title = "loading"
	return p
}

func newPageData(v render.MonthView) pageData {
	p := basePage()
	p.Title = fmt.Sprintf("%d/%d", v.Year, v.Month)
	p.Ready = true
	p.GridHeight = v.Rows * v.RowHeight
	p.Footer = v.Footer

	for i := 1; i <= v.Rows; i++ {
		p.HLines = append(p.HLines, i*v.RowHeight)
	}
	for i := 1; i < 7; i++ {
		p.VLines = append(p.VLines, i*render.ColumnWidth)
	}
	for _, d := range v.Days {
		p.Cells = append(p.Cells, cellData{
			Day:     d.Day,
			Red:     d.Red,
			Today:   d.Today,
			Entries: d.Entries,
			Left:    d.Left(),
			Top:     v.Top(d),
			Height:  v.RowHeight,
		})
	}
	return p
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
