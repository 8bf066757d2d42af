// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// vndPrinter formats numbers with Vietnamese digit grouping (1.234.567).
var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatPrice renders a price in the given currency. VND amounts are
// whole numbers with the dong sign; other currencies keep two decimals.
func FormatPrice(price float64, currency string) string {
	if currency == "" {
		currency = "VND"
	}
	if strings.EqualFold(currency, "VND") {
		return vndPrinter.Sprintf("%.0f", price) + " ₫"
	}
	return vndPrinter.Sprintf("%.2f %s", price, currency)
}
