package waterfall

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// WriteCSV renders the report for spreadsheet consumers. Amounts carry
// thousands separators to match the finance team's exports elsewhere.
func WriteCSV(w io.Writer, report Report) error {
	printer := message.NewPrinter(language.English)
	format := func(d interface{ InexactFloat64() float64 }) string {
		return printer.Sprintf("%.2f", d.InexactFloat64())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "recognized", "scheduled", "total"}); err != nil {
		return err
	}
	for _, p := range report.Periods {
		row := []string{
			p.Month,
			format(shared.RoundCents(p.Recognized)),
			format(shared.RoundCents(p.Scheduled)),
			format(shared.RoundCents(p.Total)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"TOTAL", format(report.TotalRecognized), format(report.TotalScheduled), format(report.TotalRecognized.Add(report.TotalScheduled))}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
