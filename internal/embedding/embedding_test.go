package embedding

import (
	"errors"
	"testing"
)

func TestEmbedding_Check(t *testing.T) {
	tests := []struct {
		name    string
		vector  []float32
		want    int
		wantErr bool
	}{
		{"match", make([]float32, 384), 384, false},
		{"too short", []float32{1, 2, 3}, 384, true},
		{"empty", nil, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := Embedding{Vector: tt.vector}
			if emb.Dimensions() != len(tt.vector) {
				t.Errorf("Dimensions() = %d, want %d", emb.Dimensions(), len(tt.vector))
			}
			err := emb.Check(tt.want)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check(%d) error = %v, wantErr %v", tt.want, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDimensions) {
				t.Errorf("Check() error = %v, want ErrDimensions", err)
			}
		})
	}
}
