package service

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/storefront-api/internal/domain/entity"
)

func exportFixture() []entity.Order {
	return []entity.Order{{
		ID:         12,
		BuyerName:  "=HYPERLINK(\"x\")",
		BuyerEmail: "asha@example.com",
		Status:     entity.OrderStatusConfirmed,
		Items:      []entity.OrderItem{{ProductID: "mug", Quantity: 2}},
		Subtotal:   400, Tax: 72, Shipping: 0, Total: 472,
		Payment:         entity.PaymentRecord{GatewayPaymentID: "pay_1", Currency: "INR"},
		ShippingAddress: entity.AddressSnapshot{City: "Bengaluru", PostalCode: "560001"},
		CreatedAt:       time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}}
}

func TestWriteOrdersCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, exportFixture()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, orderExportHeaders, records[0])

	row := records[1]
	assert.Equal(t, "12", row[0])
	assert.Equal(t, "2026-03-01 10:30", row[1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", row[3])
	assert.Equal(t, "4.72", row[9])
	assert.Equal(t, "pay_1", row[11])
}

func TestWriteOrdersXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOrdersXLSX(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, "12", rows[1][0])
	assert.Equal(t, "asha@example.com", rows[1][4])
}

func TestSanitizeForExcel(t *testing.T) {
	assert.Equal(t, "'+1", sanitizeForExcel("+1"))
	assert.Equal(t, "'@cmd", sanitizeForExcel("@cmd"))
	assert.Equal(t, "plain", sanitizeForExcel("plain"))
	assert.Equal(t, "", sanitizeForExcel(""))
}
