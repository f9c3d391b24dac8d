package estatement

import (
	"strconv"
	"time"
)

// lookbackMonths bounds how far back the work list may reach.
const lookbackMonths = 24

// Period identifies one statement cycle.
type Period struct {
	Month int // 1-12
	Year  int
}

// MonthValue is the month as submitted to the portal's month selector.
func (p Period) MonthValue() string { return strconv.Itoa(p.Month) }

// YearValue is the year as submitted to the portal's year selector.
func (p Period) YearValue() string { return strconv.Itoa(p.Year) }

func (p Period) String() string {
	return p.MonthValue() + "/" + p.YearValue()
}

// Window returns up to n periods strictly preceding (month, year), most
// recent first. It never reaches further back than 24 months, so the result
// has min(n, 24) elements for any n > 0 and is empty otherwise.
func Window(month, year, n int) []Period {
	if n <= 0 || month < 1 || month > 12 {
		return nil
	}
	if n > lookbackMonths {
		n = lookbackMonths
	}

	out := make([]Period, 0, n)
	m, y := month, year
	for len(out) < n {
		m--
		if m == 0 {
			m, y = 12, y-1
		}
		out = append(out, Period{Month: m, Year: y})
	}
	return out
}

// WorkList returns the periods to retrieve for a run started at now.
func WorkList(now time.Time, n int) []Period {
	return Window(int(now.Month()), now.Year(), n)
}
