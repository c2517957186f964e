package normalizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	serialRe      = regexp.MustCompile(`^\d+(\.\d+)?$`)
	isoDateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTimeRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T].+$`)
	mdyRe         = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
)

// normalizeDate canonicalizes a date cell to YYYY-MM-DD. Accepted inputs, in
// order: a numeric spreadsheet date serial (converted via the workbook
// epoch), ISO date, ISO date-time (date portion kept), and M/D/YY[YY] with
// two-digit years expanded to 20YY.
func normalizeDate(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("empty date")
	}

	if serialRe.MatchString(trimmed) {
		serial, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || serial < 1 {
			return "", fmt.Errorf("invalid date serial %q", trimmed)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", fmt.Errorf("invalid date serial %q: %w", trimmed, err)
		}
		return t.Format("2006-01-02"), nil
	}

	if isoDateRe.MatchString(trimmed) {
		return trimmed, nil
	}

	if match := isoDateTimeRe.FindStringSubmatch(trimmed); match != nil {
		return match[1], nil
	}

	if match := mdyRe.FindStringSubmatch(trimmed); match != nil {
		month, _ := strconv.Atoi(match[1])
		day, _ := strconv.Atoi(match[2])
		year := match[3]
		if len(year) == 2 {
			year = "20" + year
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return "", fmt.Errorf("invalid calendar date %q", trimmed)
		}
		return fmt.Sprintf("%s-%02d-%02d", year, month, day), nil
	}

	return "", fmt.Errorf("unparseable date %q", trimmed)
}

// parseQuantity parses a positive integer quantity. Fractional text like
// "3.0" is accepted when it carries no fractional part.
func parseQuantity(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	if qty, err := strconv.Atoi(trimmed); err == nil {
		if qty <= 0 {
			return 0, fmt.Errorf("quantity must be positive")
		}
		return qty, nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", trimmed)
	}
	qty := int(f)
	if float64(qty) != f || qty <= 0 {
		return 0, fmt.Errorf("quantity must be a positive integer")
	}
	return qty, nil
}
