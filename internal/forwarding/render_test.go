package forwarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		fields   Fields
		want     string
	}{
		{
			name:     "all placeholders resolved",
			template: "Pesanan {nama}: {produk}",
			fields:   Fields{"nama": "Budi", "produk": "Kopi"},
			want:     "Pesanan Budi: Kopi",
		},
		{
			name:     "unresolved placeholder stays verbatim",
			template: "X={a}, Y={b}",
			fields:   Fields{"a": "1"},
			want:     "X=1, Y={b}",
		},
		{
			name:     "repeated placeholder replaced everywhere",
			template: "{kode} / {kode}",
			fields:   Fields{"kode": "A1"},
			want:     "A1 / A1",
		},
		{
			name:     "empty value substitutes to nothing",
			template: "Catatan: [{catatan}]",
			fields:   Fields{"catatan": ""},
			want:     "Catatan: []",
		},
		{
			name:     "template without placeholders passes through",
			template: "pesan statis",
			fields:   Fields{"nama": "Budi"},
			want:     "pesan statis",
		},
		{
			name:     "no fields leaves template untouched",
			template: "Halo {nama}",
			fields:   Fields{},
			want:     "Halo {nama}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.fields))
		})
	}
}
