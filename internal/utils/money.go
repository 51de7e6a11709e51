package utils

import "fmt"

// FormatMoney keeps consistent decimal formatting for currency fields.
func FormatMoney(amount float64) string {
	if amount < 0 {
		return fmt.Sprintf("-%.2f", -amount)
	}
	return fmt.Sprintf("%.2f", amount)
}
