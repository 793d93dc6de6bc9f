package notifier

import (
	"fmt"
	"html"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"EtfVolatility/internal/model"
	"EtfVolatility/internal/stats"
)

// WriteSummaryTable writes one row per instrument with the price, HV and VIX
// step markers (✓ updated, - skipped, × unchanged or failed).
func WriteSummaryTable(w io.Writer, reports []model.StatusReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ETF\tCODE\tPRICE\tHV\tVIX\tNEW")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			r.Name, r.Code, r.Price.Symbol(), r.HV.Symbol(), r.VIX.Symbol(), r.NewPrices, r.NewVix)
	}
	return tw.Flush()
}

// FormatUpdateReport formats a batch result into a Telegram message.
func FormatUpdateReport(reports []model.StatusReport, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>ETF 波动率更新</b> | %s\n\n", at.Format("2006-01-02 15:04")))

	var table strings.Builder
	_ = WriteSummaryTable(&table, reports)
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(table.String()))
	b.WriteString("</pre>\n")

	failed := 0
	for _, r := range reports {
		if !r.Failed() {
			continue
		}
		failed++
		for _, e := range r.Errors {
			b.WriteString(fmt.Sprintf("⚠️ %s: %s\n", r.Code, html.EscapeString(e)))
		}
	}
	if failed == 0 {
		b.WriteString("全部完成 ✅")
	} else {
		b.WriteString(fmt.Sprintf("%d/%d 个标的存在失败步骤", failed, len(reports)))
	}
	return b.String()
}

// FormatStats formats an instrument summary for display.
func FormatStats(s *stats.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> (%s) | %s\n\n", html.EscapeString(s.Name), s.Code, s.Date.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("收盘价: %.3f %s\n", s.Close, pct(s.ClosePct)))
	if s.High52w > 0 {
		b.WriteString(fmt.Sprintf("52周区间: %.3f ~ %.3f (位置 %.0f%%)\n", s.Low52w, s.High52w, s.RangePos52w*100))
	}
	b.WriteString(fmt.Sprintf("VIX: %s %s\n", num(s.VIX), pct(s.VixPct)))
	b.WriteString(fmt.Sprintf("HV20: %s %s\n", num(s.HV20), pct(s.HV20Pct)))
	b.WriteString(fmt.Sprintf("HV60: %s\n", num(s.HV60)))
	b.WriteString(fmt.Sprintf("HV252: %s\n", num(s.HV252)))
	return b.String()
}

func num(f model.Float) string {
	if !f.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", f.Value)
}

func pct(p stats.Percentiles) string {
	if !p.All.Valid {
		return ""
	}
	return fmt.Sprintf("(历史分位 %.1f%%, 近一年 %.1f%%)", p.All.Value, p.Year.Value)
}
