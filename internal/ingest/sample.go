package ingest

import (
	"time"

	"github.com/wonny/finsight/internal/dataset"
)

// SampleFrame returns the twelve-month template offered to users as a starting file.
// Dates are month ends of 2023.
func SampleFrame() *dataset.Frame {
	dates := make([]time.Time, 12)
	for i := range dates {
		// day 0 of the next month is the last day of this one
		dates[i] = time.Date(2023, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC)
	}

	columns := []string{"revenue", "expenses", "profit", "cashflow", "demand"}
	data := map[string][]float64{
		"revenue":  {10000, 12000, 15000, 13000, 14000, 16000, 17000, 18000, 19000, 20000, 22000, 25000},
		"expenses": {6000, 6500, 7000, 6800, 7200, 7500, 8000, 8500, 9000, 9500, 10000, 11000},
		"profit":   {4000, 5500, 8000, 6200, 6800, 8500, 9000, 9500, 10000, 10500, 12000, 14000},
		"cashflow": {2000, 2500, 3000, 2800, 3200, 3500, 4000, 4200, 4500, 4800, 5000, 5500},
		"demand":   {500, 550, 600, 580, 620, 650, 700, 720, 750, 780, 800, 850},
	}

	f, err := dataset.NewFrame(dates, columns, data)
	if err != nil {
		panic(err) // static data
	}
	return f
}
