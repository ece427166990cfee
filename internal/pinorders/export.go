package pinorders

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteCSV serialises orders in the given order.
func WriteCSV(w io.Writer, orders []Order) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Order ID", "Customer ID", "Product", "PIN Code", "Amount", "Status", "Created At"}); err != nil {
		return err
	}
	for _, o := range orders {
		if err := writer.Write([]string{
			o.ID,
			o.CustomerID,
			o.Product,
			o.PinCode,
			strconv.FormatFloat(o.Amount, 'f', 2, 64),
			o.Status,
			o.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
