package invoice

import (
	"context"
	"testing"
	"time"

	"baburchi-admin/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *model.Order {
	sid := "1424107"
	o := &model.Order{
		ModeratorID:     "m1",
		CustomerName:    "Karim Uddin",
		CustomerPhone:   "01712345678",
		CustomerAddress: "Dhanmondi, Dhaka",
		Status:          model.OrderConfirmed,
		Notes:           "<call before delivery>",
		SteadfastID:     &sid,
		Items: []model.OrderItem{
			{ProductID: "p4", ProductName: "Garam Masala 500g", Quantity: 2, Price: 1424},
			{ProductID: "p1", Quantity: 1, Price: 550},
		},
	}
	o.ID = "ORD-1021"
	o.CreatedAt = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	o.TotalAmount = o.ComputeTotal()
	return o
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "৳550", FormatAmount(550))
	assert.Equal(t, "৳1,650", FormatAmount(1650))
	assert.Equal(t, "৳1,234,567", FormatAmount(1234567))
}

func TestNewData(t *testing.T) {
	d := NewData("Baburchi", "javascript:alert(1)", sampleOrder())
	assert.Empty(t, d.Logo)
	assert.Equal(t, "05 Jan 2024", d.Date)
	assert.Equal(t, "৳3,398", d.Total)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "৳2,848", d.Lines[0].Total)
	assert.Equal(t, "p1", d.Lines[1].Name)
	assert.Equal(t, "1424107", d.ConsignmentID)

	d = NewData("Baburchi", "data:image/png;base64,AAAA", sampleOrder())
	assert.NotEmpty(t, d.Logo)
}

func TestRenderer_HTML(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)

	html, err := r.HTML(NewData("Baburchi", "", sampleOrder()))
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Invoice ORD-1021")
	assert.Contains(t, out, "Garam Masala 500g")
	assert.Contains(t, out, "৳3,398")
	assert.Contains(t, out, "&lt;call before delivery&gt;")
	assert.NotContains(t, out, "<call before delivery>")
}

type fakePDF struct{ got []byte }

func (f *fakePDF) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	f.got = html
	return []byte("%PDF-1.4"), nil
}

func TestRenderer_PDF(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	_, err = r.PDF(context.Background(), NewData("Baburchi", "", sampleOrder()))
	assert.ErrorIs(t, err, ErrPDFDisabled)

	fake := &fakePDF{}
	r, err = NewRenderer(fake)
	require.NoError(t, err)
	pdf, err := r.PDF(context.Background(), NewData("Baburchi", "", sampleOrder()))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Contains(t, string(fake.got), "ORD-1021")
}
