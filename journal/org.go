package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatCloseOrg renders a CloseRecord as an Org-mode block for pasting
// into a trading journal. Facts go in the PROPERTIES drawer; the Review
// heading is left for notes.
func FormatCloseOrg(r CloseRecord) string {
	heading := fmt.Sprintf("** Close: %s %s (%s #%d)", r.Instrument, r.Side, shortID(r.PositionID), r.Seq)
	open := r.OpenTime.UTC().Format(time.RFC3339)
	closed := r.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":POSITION_ID: %s\n", r.PositionID)
	fmt.Fprintf(&b, ":ORDER_ID: %s\n", r.OrderID)
	fmt.Fprintf(&b, ":SEQ: %d\n", r.Seq)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", r.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", r.Side)
	fmt.Fprintf(&b, ":QUANTITY: %s\n", r.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", r.EntryPrice.StringFixed(5))
	fmt.Fprintf(&b, ":CLOSE_PRICE: %s\n", r.ClosePrice.StringFixed(5))
	fmt.Fprintf(&b, ":CLOSE_QUANTITY: %s\n", r.CloseQuantity)
	fmt.Fprintf(&b, ":REMAINING: %s\n", r.Remaining)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", open)
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", closed)
	fmt.Fprintf(&b, ":PNL: %s\n", r.PnL.StringFixed(2))
	fmt.Fprintf(&b, ":REALIZED_PNL: %s\n", r.RealizedPnL.StringFixed(2))
	fmt.Fprintf(&b, ":STATUS: %s\n", r.Status)
	fmt.Fprintf(&b, ":REASON: %s\n", r.Reason)
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatClosesOrg renders several closes separated by blank lines.
func FormatClosesOrg(recs []CloseRecord) string {
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatCloseOrg(r))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
