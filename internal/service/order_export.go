package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

var orderExportHeaders = []string{
	"Order ID", "Created", "Status", "Buyer", "Email", "Items",
	"Subtotal", "Tax", "Shipping", "Total", "Currency", "Payment ID", "City", "Postal code",
}

func orderExportRow(o *entity.Order) []interface{} {
	return []interface{}{
		o.ID,
		o.CreatedAt.Format("2006-01-02 15:04"),
		string(o.Status),
		sanitizeForExcel(o.BuyerName),
		sanitizeForExcel(o.BuyerEmail),
		len(o.Items),
		float64(o.Subtotal) / 100,
		float64(o.Tax) / 100,
		float64(o.Shipping) / 100,
		float64(o.Total) / 100,
		o.Payment.Currency,
		sanitizeForExcel(o.Payment.GatewayPaymentID),
		sanitizeForExcel(o.ShippingAddress.City),
		sanitizeForExcel(o.ShippingAddress.PostalCode),
	}
}

// WriteOrdersXLSX пишет заказы в xlsx через StreamWriter
func WriteOrdersXLSX(w io.Writer, orders []entity.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Orders"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	headers := make([]interface{}, len(orderExportHeaders))
	for i, h := range orderExportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i := range orders {
		cell := fmt.Sprintf("A%d", i+2)
		if err := sw.SetRow(cell, orderExportRow(&orders[i])); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream writer: %w", err)
	}
	return f.Write(w)
}

// WriteOrdersCSV пишет заказы в CSV с BOM для Excel
func WriteOrdersCSV(w io.Writer, orders []entity.Order) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(orderExportHeaders); err != nil {
		return err
	}
	for i := range orders {
		row := orderExportRow(&orders[i])
		record := make([]string, len(row))
		for j, v := range row {
			switch val := v.(type) {
			case string:
				record[j] = val
			case float64:
				record[j] = strconv.FormatFloat(val, 'f', 2, 64)
			default:
				record[j] = fmt.Sprint(val)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
