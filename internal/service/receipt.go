package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"brewpos/backend/internal/domain"
)

// buildReceipt renders the stored order as a printable receipt, both as plain
// text and as an ESC/POS byte stream for thermal printers.
func buildReceipt(order domain.Order) domain.Receipt {
	lines := []string{
		"BrewPOS Coffee",
		"========================",
		"Order: " + order.ID,
		"Date:  " + order.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if order.ClientName != "" {
		lines = append(lines, "Name:  "+order.ClientName)
	}
	if order.CashierUsername != "" {
		lines = append(lines, "Cashier: "+order.CashierUsername)
	}
	lines = append(lines, "------------------------")

	for _, line := range order.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", line.ProductName, line.Quantity))
		for _, variant := range line.VariantNames {
			lines = append(lines, "  + "+variant)
		}
		for _, extra := range line.ExtraNames {
			lines = append(lines, "  + "+extra)
		}
		if line.PackagingName != "" {
			lines = append(lines, fmt.Sprintf("  + %s (%.2f)", line.PackagingName, line.PackagingUnitPrice))
		}
		lines = append(lines, fmt.Sprintf("  %8.2f", line.LineSubtotal))
	}

	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %8.2f", order.Subtotal),
		fmt.Sprintf("Discount : %8.2f", order.Discount),
		fmt.Sprintf("Tax      : %8.2f", order.Tax),
		fmt.Sprintf("Total    : %8.2f", order.Total),
		fmt.Sprintf("Paid     : %8.2f", order.AmountPaid),
		fmt.Sprintf("Change   : %8.2f", order.ChangeGiven),
		"========================",
		"Thank you!",
		"",
	)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.Receipt{
		OrderID:      order.ID,
		PreviewText:  strings.Join(lines, "\n"),
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		FileName:     fmt.Sprintf("receipt-%s.bin", order.ID),
	}
}
