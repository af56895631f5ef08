package watch

import (
	"fmt"
	"strings"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) Render(st *State, mode RenderMode) string {
	agg := st.Aggregate()

	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(colorize("[PNLMON] ", ansiDim))

	col := ansiYellow
	switch {
	case agg.TotalPnL > 0:
		col = ansiGreen
	case agg.TotalPnL < 0:
		col = ansiRed
	}
	sb.WriteString(colorize(fmt.Sprintf("PnL %+.2f (%+.2f%%)", agg.TotalPnL, agg.PnLPercent), col))
	sb.WriteString(colorize(fmt.Sprintf("  inv %.2f", agg.TotalInvested), ansiDim))

	if st.Loading() {
		sb.WriteString(colorize("  loading", ansiYellow))
	}

	prices := st.Prices()
	for _, sym := range st.PricedSymbols() {
		sb.WriteString(colorize("  ||  ", ansiDim))
		sb.WriteString(sym)
		sb.WriteString(fmt.Sprintf(" %.4f", prices[sym]))
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}
