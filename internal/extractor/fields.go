package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	trackingRe      = regexp.MustCompile(`trackNums=([A-Za-z0-9]+)`)
	blockQuantityRe = regexp.MustCompile(`(?is)<div[^>]*>\s*Quantity:\s*(\d+)\s*</div>`)
	bareQuantityRe  = regexp.MustCompile(`(?i)Quantity:\s*(\d+)`)
)

// QuantityStrategy tries one heuristic against the body. ok is false when
// the heuristic found nothing and the next one should run.
type QuantityStrategy func(body string) (total int, ok bool)

// quantityStrategies is the ordered first-success-wins heuristic chain.
// Swapping the extraction approach means editing this list, not the
// harvester.
var quantityStrategies = []QuantityStrategy{
	blockScopedQuantity,
	bareQuantityWithDedupe,
}

// TrackingNumber returns the first tracking number embedded in the body as a
// query-parameter token, or "" when absent.
func TrackingNumber(body string) string {
	match := trackingRe.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return match[1]
}

// TotalQuantity runs the quantity heuristics in order and returns the first
// hit. An empty or quantity-free body yields 0.
func TotalQuantity(body string) int {
	if body == "" {
		return 0
	}
	for _, strategy := range quantityStrategies {
		if total, ok := strategy(body); ok {
			return total
		}
	}
	return 0
}

// blockScopedQuantity sums "Quantity: N" occurrences scoped inside div
// markup. Matches inside blocks are trusted as distinct line items.
func blockScopedQuantity(body string) (int, bool) {
	values := matchedInts(blockQuantityRe, body)
	if len(values) == 0 {
		return 0, false
	}
	return sum(values), true
}

// bareQuantityWithDedupe sums bare "Quantity: N" matches anywhere in the
// body. An even-length list whose halves are identical is treated as a
// doubled rendering (HTML body repeating its plain-text equivalent) and only
// one half is summed.
func bareQuantityWithDedupe(body string) (int, bool) {
	values := matchedInts(bareQuantityRe, body)
	if len(values) == 0 {
		return 0, false
	}
	return sum(dedupeIfRepeated(values)), true
}

func dedupeIfRepeated(values []int) []int {
	if len(values)%2 != 0 {
		return values
	}
	half := len(values) / 2
	if joinInts(values[:half]) == joinInts(values[half:]) {
		return values[half:]
	}
	return values
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func matchedInts(re *regexp.Regexp, body string) []int {
	var values []int
	for _, match := range re.FindAllStringSubmatch(body, -1) {
		value, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		values = append(values, value)
	}
	return values
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
